package metrics

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/rickgao/signalhub/internal/router"
	"github.com/rickgao/signalhub/internal/signal"
)

// StatsSource is the part of the router the reporter reads.
type StatsSource interface {
	Stats() []router.ChannelStats
}

// Reporter periodically logs per-channel statistics.
type Reporter struct {
	source StatsSource
	cron   *cron.Cron
	logger *slog.Logger
}

// NewReporter schedules a stats log line per channel. schedule is a standard
// cron expression or a descriptor such as "@every 5m".
func NewReporter(source StatsSource, schedule string, logger *slog.Logger) (*Reporter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reporter{
		source: source,
		cron:   cron.New(),
		logger: logger,
	}
	if _, err := r.cron.AddFunc(schedule, r.Report); err != nil {
		return nil, fmt.Errorf("parse stats schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins the schedule in the background.
func (r *Reporter) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running report to finish.
func (r *Reporter) Stop() {
	<-r.cron.Stop().Done()
}

// Report logs the current statistics once.
func (r *Reporter) Report() {
	for _, s := range r.source.Stats() {
		r.logger.Info("channel stats",
			"channel", s.Name,
			"kind", s.Kind,
			"depth", s.Queue.Depth,
			"pushed", s.Queue.TotalPushed,
			"taken", s.Queue.TotalTaken,
			"evicted", s.Queue.TotalEvicted,
			"dedup_entries", s.DedupEntries,
			"queued", s.Outcomes[signal.Queued],
			"deduped", s.Outcomes[signal.Deduped],
			"ignored", s.Outcomes[signal.Ignored],
			"rejected", s.Outcomes[signal.Rejected],
		)
	}
}
