// Package version holds build metadata injected with ldflags:
//
//	go build -ldflags "-X github.com/rickgao/signalhub/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/signalhub/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/signalhub/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

var (
	Version   = "dev"     // Semantic version
	Commit    = "unknown" // Short git hash
	BuildTime = "unknown" // UTC, ISO 8601
)

// String returns "<version> (<commit>) built <time>".
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}

// LogAttrs returns the build metadata as slog key/value pairs.
func LogAttrs() []any {
	return []any{"version", Version, "commit", Commit, "build_time", BuildTime}
}
