// Package dedup implements the two deduplication disciplines used by channels.
//
//   - IDFilter: keyed by the caller-supplied identifier, minutes-scale window
//   - ContentFilter: keyed by a content fingerprint (author, command, symbol
//     and every extracted price), seconds-scale window, for sources with no
//     reliable identifier
//
// Both filters sweep expired entries inline on each check; there is no
// background timer. Neither filter locks: the owning channel serializes calls.
package dedup
