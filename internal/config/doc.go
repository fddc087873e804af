// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// PORT and SECRET_KEY in the environment override the file. When no channels are
// configured the built-in a/b/c channels apply.
package config
