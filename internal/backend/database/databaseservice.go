package database

import (
	"context"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/common"
)

// DatabaseService owns every read and write of request logs and feedback.
// Each call acquires and releases its own connection; no transaction spans two calls.
type DatabaseService interface {
	CreateDatabase(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// InsertRequestLog appends a prediction attempt and returns the generated id.
	InsertRequestLog(ctx context.Context, address, filename, prediction string, confidence float64, isValid bool) (int64, error)
	// InvalidateRequestLog clears the validity flag. Unknown ids are a no-op.
	InvalidateRequestLog(ctx context.Context, id int64) error
	GetRequestLogs(ctx context.Context) ([]RequestLog, error)
	GetRequestLogByID(ctx context.Context, id int64) (*RequestLog, error)

	// InsertFeedback stores a correction. imageData is base64, optionally data-URI prefixed.
	InsertFeedback(ctx context.Context, imageData string, label common.Label) (int64, error)
	GetFeedbackLogs(ctx context.Context) ([]FeedbackRecord, error)

	// GetPredictionCounts counts valid requests per label. Every label is present.
	GetPredictionCounts(ctx context.Context) (map[common.Label]int64, error)
}
