// Package poller implements the consumer-side signal poller.
//
// One worker per channel drains its queue with repeated TakeNext calls and
// hands every signal to a Handler in queue order. An empty queue waits
// Interval, a full cycle goes again at once, and take errors back off
// exponentially up to MaxErrorBackoff.
package poller
