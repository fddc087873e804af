// Package connection implements the websocket feed consumer.
//
// A Feed dials /ws/<channel> on a signalhub server, decodes each pushed JSON
// frame into a signal and calls a Handler in send order. The server takes a
// signal from its queue as it sends it, so a Feed is an alternative to
// polling /last/<channel>. Follow wraps a Feed with reconnect backoff.
package connection
