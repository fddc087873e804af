// Package api provides a Go client for the signalhub HTTP API.
//
// Producers submit structured alerts or chat text; consumers take signals
// one at a time with TakeNext, which removes them from the channel queue.
// Every call carries the shared secret as ?key=.
package api
