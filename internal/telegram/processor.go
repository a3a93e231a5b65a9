package telegram

import (
	"context"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/rs/zerolog"

	"labelops/internal/metrics"
	"labelops/internal/queue"
)

// Processor counts every update and drops the ones Redis has already seen.
// A nil Dedupe processes everything.
type Processor struct {
	Base    ext.BaseProcessor
	Dedupe  *queue.UpdateDeduplicator
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

func (p Processor) ProcessUpdate(d *ext.Dispatcher, b *gotgbot.Bot, ctx *ext.Context) error {
	if p.Metrics != nil {
		p.Metrics.UpdatesTotal.Inc()
	}
	if p.Dedupe != nil {
		first, err := p.Dedupe.MarkFirst(context.Background(), ctx.UpdateId)
		if err != nil {
			// Redis trouble must not cost a message.
			p.Logger.Error().Err(err).Int64("update_id", ctx.UpdateId).Msg("failed to dedupe update")
		} else if !first {
			if p.Metrics != nil {
				p.Metrics.DuplicateUpdates.Inc()
			}
			p.Logger.Debug().Int64("update_id", ctx.UpdateId).Msg("skipping redelivered update")
			return nil
		}
	}
	return p.Base.ProcessUpdate(d, b, ctx)
}
