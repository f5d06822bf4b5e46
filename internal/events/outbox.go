package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"invoicing-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event describes a domain event to store in the outbox.
type Event struct {
	Type        string
	AggregateID uint
	Payload     any
}

// Outbox inserts domain events into the domain_events table.
type Outbox struct {
	db *gorm.DB
}

func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	if o == nil {
		return errors.New("outbox_unavailable")
	}
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction; the event becomes
// visible only if tx commits.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if db == nil {
		return errors.New("outbox_unavailable")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}
	if event.AggregateID == 0 {
		return errors.New("invalid_aggregate_id")
	}

	raw, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	row := models.DomainEvent{
		ID:          uuid.NewString(),
		EventType:   name,
		AggregateID: event.AggregateID,
		Payload:     datatypes.JSON(raw),
		CreatedAt:   time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(&row).Error
}
