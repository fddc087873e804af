// Package router implements the Signal Router.
//
// The Router:
//   - Binds each channel name to a payload kind, direction detector, author
//     grammar table, dedup discipline and queue
//   - Structured channels: normalize cmd/symbol, require id, dedup by id
//   - Text channels: detect direction, apply author/room allow-lists, extract
//     prices with the author's grammar, dedup by id or content fingerprint
//   - Reports queued / deduped / ignored:<reason> / rejected:<reason>
//
// Every channel owns its Store. Dedup check and enqueue for one submission run
// under that channel's mutex; channels never contend with each other.
package router
