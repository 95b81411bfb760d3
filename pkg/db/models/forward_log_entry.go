package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/inkbridge/inkbridge-backend/pkg/enums"
)

// ForwardLogEntry is one immutable record of a forward attempt. Rows are only
// ever inserted; replay reads them newest first.
type ForwardLogEntry struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	IdempotencyKey string              `gorm:"column:idempotency_key;index;not null"`
	OrderNumber    string              `gorm:"column:order_number;index"`
	Status         enums.ForwardStatus `gorm:"column:status;not null"`
	HTTPStatus     *int                `gorm:"column:http_status"`
	RawPayload     json.RawMessage     `gorm:"column:raw_payload;serializer:json"`
	NormalizedView json.RawMessage     `gorm:"column:normalized_view;serializer:json"`
	ErrorMessage   string              `gorm:"column:error_message"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// TableName fixes the storage table for the forward log.
func (ForwardLogEntry) TableName() string {
	return "forward_log_entries"
}
