package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirhf/imageSearch/services/search-web/models"
)

// Recorder persists published outcomes. Its Handle method is subscribed to
// the form's resolution topic.
type Recorder struct {
	store   HistoryStore
	logger  *slog.Logger
	timeout time.Duration
}

func NewRecorder(store HistoryStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, timeout: 5 * time.Second}
}

func (r *Recorder) Handle(outcome models.SearchOutcome) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.Record(ctx, outcome); err != nil {
		r.logger.Error("record search outcome", "id", outcome.ID, "error", err)
		return
	}
	if outcome.Status == models.OutcomeFailed {
		// Transport and malformed failures look the same to the user.
		r.logger.Warn("search outcome recorded",
			"id", outcome.ID,
			"session", outcome.SessionID,
			"error_kind", outcome.ErrorKind,
			"error", outcome.Error)
		return
	}
	r.logger.Debug("search outcome recorded", "id", outcome.ID, "results", outcome.ResultCount)
}
