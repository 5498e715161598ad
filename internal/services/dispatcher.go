package services

import (
	"context"

	"github.com/awstrack/awstrack/internal/cache"
	"github.com/awstrack/awstrack/internal/domain/alert"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/metrics"
)

// Dispatcher fans alerts out to the configured notification channels with
// per-channel isolation and dedup-key suppression. Failed channels are not
// retried for the same alert; the dedup entry expires after the retention
// window, after which a recurring condition may alert again.
type Dispatcher struct {
	dedup     cache.Dedup
	notifiers []alert.Notifier
	history   alert.Repository
	logger    *logger.Logger
}

// NewDispatcher creates a dispatcher. history may be nil when alert
// persistence is disabled.
func NewDispatcher(dedup cache.Dedup, notifiers []alert.Notifier, history alert.Repository, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		dedup:     dedup,
		notifiers: notifiers,
		history:   history,
		logger:    log.WithComponent("dispatcher"),
	}
}

// Dispatch delivers the alert on every channel unless its dedup key was
// already notified within the retention window. One channel's failure does
// not prevent delivery on the others.
func (d *Dispatcher) Dispatch(ctx context.Context, a *alert.Alert) error {
	seen, err := d.dedup.Seen(ctx, a.DedupKey)
	if err != nil {
		// A broken dedup cache must not silence alerts; deliver anyway.
		d.logger.ErrorWithErr(err, "Dedup cache unavailable, delivering without suppression")
	} else if seen {
		metrics.RecordDeduped()
		d.logger.WithFields(map[string]interface{}{
			"dedup_key": a.DedupKey,
		}).Debug("Alert suppressed by dedup cache")
		return nil
	}

	a.ChannelResults = make(map[string]alert.ChannelResult, len(d.notifiers))
	for _, n := range d.notifiers {
		result := alert.ChannelResult{Delivered: true}
		if err := n.Send(ctx, a); err != nil {
			result = alert.ChannelResult{Delivered: false, Error: err.Error()}
			d.logger.WithFields(map[string]interface{}{
				"alert_id": a.ID,
				"channel":  n.Name(),
			}).ErrorWithErr(err, "Channel delivery failed")
		}
		a.ChannelResults[n.Name()] = result
		metrics.RecordDispatch(n.Name(), result.Delivered)
	}

	d.logger.WithFields(map[string]interface{}{
		"alert_id":  a.ID,
		"severity":  a.Severity,
		"source":    a.SourceKind,
		"delivered": a.Delivered(),
	}).Info("Alert dispatched")

	if d.history != nil {
		if err := d.history.Save(ctx, a); err != nil {
			d.logger.ErrorWithErr(err, "Failed to persist alert")
		}
	}
	return nil
}
