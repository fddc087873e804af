// Package httpapi exposes the router over HTTP.
//
// Routes:
//   - GET  /health                  liveness, no key
//   - POST /signal/:channel         JSON body, structured or text by channel kind
//   - POST /signal/:channel_plain   raw text body, metadata in who/room/symbol/id query params
//   - POST /signal/:channel_raw     legacy alias of the JSON route
//   - GET  /last/:channel           take the oldest pending signal, {"signal":null} when empty
//   - GET  /ws/:channel             websocket feed that takes signals as they arrive
//
// Every route except /health and the metrics path requires ?key=.
//
// Delivery is at-most-once: a signal taken for a websocket that fails
// mid-write is not requeued.
package httpapi
