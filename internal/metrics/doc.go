// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Submissions by channel, outcome and reason
//   - Queue evictions and takes
//   - Queue depth per channel
//
// Reporter logs per-channel router statistics on a cron schedule.
package metrics
