package events

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler consumes one stored event. A returned error leaves the event
// unpublished so the next pass retries it.
type Handler func(ctx context.Context, event models.DomainEvent) error

// Relay delivers outbox rows to subscribers in creation order.
type Relay struct {
	db *gorm.DB

	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewRelay(db *gorm.DB) *Relay {
	return &Relay{db: db, handlers: map[string][]Handler{}}
}

// Subscribe registers h for eventType.
func (r *Relay) Subscribe(eventType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], h)
}

func (r *Relay) handlersFor(eventType string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Handler(nil), r.handlers[eventType]...)
}

// Dispatch delivers up to limit pending events and returns how many were
// marked published.
func (r *Relay) Dispatch(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	log := logger.WithComponent("event-relay")

	published := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []models.DomainEvent
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("published = ?", false).
			Order("created_at ASC").
			Limit(limit).
			Find(&pending).Error; err != nil {
			return err
		}

		for _, ev := range pending {
			if err := r.deliver(ctx, ev); err != nil {
				log.Warn().Err(err).Str("event_id", ev.ID).Str("event_type", ev.EventType).Msg("Event teslim edilemedi")
				if err := tx.Model(&models.DomainEvent{}).Where("id = ?", ev.ID).Updates(map[string]any{
					"attempts":   ev.Attempts + 1,
					"last_error": truncate(err.Error(), 500),
				}).Error; err != nil {
					return err
				}
				continue
			}

			now := time.Now().UTC()
			if err := tx.Model(&models.DomainEvent{}).Where("id = ?", ev.ID).Updates(map[string]any{
				"published":    true,
				"published_at": now,
				"attempts":     ev.Attempts + 1,
				"last_error":   "",
			}).Error; err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

func (r *Relay) deliver(ctx context.Context, ev models.DomainEvent) error {
	for _, h := range r.handlersFor(ev.EventType) {
		if err := h(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Run dispatches on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration, batch int) {
	log := logger.WithComponent("event-relay")
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Int("batch", batch).Msg("Event relay başlatıldı")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Event relay durduruldu")
			return
		case <-ticker.C:
			n, err := r.Dispatch(ctx, batch)
			if err != nil {
				log.Error().Err(err).Msg("Event relay hatası")
				continue
			}
			if n > 0 {
				log.Debug().Int("published", n).Msg("Eventler yayınlandı")
			}
		}
	}
}

// LogHandler writes every event it receives to the application log.
func LogHandler(ctx context.Context, ev models.DomainEvent) error {
	log := logger.WithComponent("events")
	log.Info().
		Str("event_id", ev.ID).
		Str("event_type", ev.EventType).
		Uint("aggregate_id", ev.AggregateID).
		RawJSON("payload", ev.Payload).
		Msg("Domain event")
	return nil
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune;
// text columns reject invalid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
