package forwardlog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkbridge/inkbridge-backend/pkg/db/models"
)

// Repository provides append-only access to the forward log. Entries are
// inserted exactly once per forward attempt and never updated or deleted.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append persists one forward attempt.
func (r *Repository) Append(ctx context.Context, entry *models.ForwardLogEntry) error {
	if entry == nil {
		return errors.New("log entry required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ErrStopScan signals early termination from a scan callback.
var ErrStopScan = errors.New("stop scan")

// Scan walks the log newest first, invoking fn for every entry until fn
// returns ErrStopScan or the log is exhausted.
func (r *Repository) Scan(ctx context.Context, fn func(entry models.ForwardLogEntry) error) error {
	const batchSize = 100

	offset := 0
	for {
		var batch []models.ForwardLogEntry
		err := r.db.WithContext(ctx).
			Order("created_at DESC").
			Order("id DESC").
			Offset(offset).
			Limit(batchSize).
			Find(&batch).Error
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, entry := range batch {
			if err := fn(entry); err != nil {
				if errors.Is(err, ErrStopScan) {
					return nil
				}
				return err
			}
		}
		offset += len(batch)
	}
}

// LastByKey returns the most recent entry for the given idempotency key.
func (r *Repository) LastByKey(ctx context.Context, idempotencyKey string) (*models.ForwardLogEntry, error) {
	var entry models.ForwardLogEntry
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).
		Order("created_at DESC").
		Order("id DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
