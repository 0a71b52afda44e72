package bulk

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrImportLogNotFound means no import log exists with the given ID
var ErrImportLogNotFound = errors.New("bulk: import log not found")

// ImportLogRepository persists import audit records
type ImportLogRepository interface {
	Create(ctx context.Context, log *ImportLog) error
	FindByID(ctx context.Context, id uuid.UUID) (*ImportLog, error)

	// List returns the most recent logs first
	List(ctx context.Context, limit int) ([]ImportLog, error)
}
