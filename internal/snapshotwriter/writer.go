// Package snapshotwriter persists each poll cycle's funding rates without
// ever blocking or failing the poll loop that produced them, in the style of internal/bot's fire-and-forget
// persistence calls around its exchange poll loop.
package snapshotwriter

import (
	"go.uber.org/zap"

	"hldesk/internal/models"
)

type FundingStore interface {
	BulkInsert(rates []models.FundingRate) error
}

type Writer struct {
	store  FundingStore
	logger *zap.Logger
}

func New(store FundingStore, logger *zap.Logger) *Writer {
	return &Writer{store: store, logger: logger}
}

// Save persists rates in the background. Call as `go writer.Save(rates)`
// from the poll loop; errors are logged, never propagated.
func (w *Writer) Save(rates []models.FundingRate) {
	if len(rates) == 0 {
		return
	}
	if err := w.store.BulkInsert(rates); err != nil {
		w.logger.Error("snapshotwriter: bulk insert failed", zap.Int("count", len(rates)), zap.Error(err))
	}
}
