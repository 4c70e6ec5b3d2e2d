package platform

import (
	"context"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
)

// LogHook logs every external fetch.
type LogHook struct {
	logger *common.Logger
}

// NewLogHook returns a LogHook writing to logger.
func NewLogHook(logger *common.Logger) *LogHook {
	return &LogHook{logger: logger}
}

func (h *LogHook) BeforeExternalFetch(_ context.Context, rec *models.SeriesRecord) {
	h.logger.Info().
		Str("ticker", rec.FullTicker.String()).
		Str("provider", rec.ProviderCode.String()).
		Msg("External fetch")
}

// PublishHook sends a fetch event for every external fetch. Publish errors
// are logged and never fail the fetch.
type PublishHook struct {
	publisher interfaces.EventPublisher
	logger    *common.Logger
}

// NewPublishHook returns a hook publishing through publisher.
func NewPublishHook(publisher interfaces.EventPublisher, logger *common.Logger) *PublishHook {
	return &PublishHook{publisher: publisher, logger: logger}
}

func (h *PublishHook) BeforeExternalFetch(ctx context.Context, rec *models.SeriesRecord) {
	if err := h.publisher.PublishFetch(ctx, rec); err != nil {
		h.logger.Warn().Err(err).Str("ticker", rec.FullTicker.String()).Msg("Failed to publish fetch event")
	}
}

// Close closes the publisher.
func (h *PublishHook) Close() error {
	return h.publisher.Close()
}

// Hooks fans one notification out to several hooks in order.
type Hooks []interfaces.ExternalFetchHook

func (hs Hooks) BeforeExternalFetch(ctx context.Context, rec *models.SeriesRecord) {
	for _, h := range hs {
		h.BeforeExternalFetch(ctx, rec)
	}
}

// Close closes every hook that can be closed.
func (hs Hooks) Close() error {
	var first error
	for _, h := range hs {
		if c, ok := h.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
