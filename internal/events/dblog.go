package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qboard/qboard/internal/engine"
	"github.com/qboard/qboard/internal/models"
)

// DBLog appends every event to the event_log table. Params are stored as
// JSON; post snapshots in the map serialize through their model fields.
type DBLog struct {
	db *gorm.DB
}

// NewDBLog creates the durable event consumer.
func NewDBLog(db *gorm.DB) *DBLog {
	return &DBLog{db: db}
}

// Consume writes one event row.
func (l *DBLog) Consume(ctx context.Context, event string, actor engine.Actor, params map[string]any) error {
	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode event params: %w", err)
	}
	row := models.EventLog{
		Event:     event,
		Handle:    actor.Handle,
		CookieID:  actor.CookieID,
		Params:    string(encoded),
		CreatedAt: time.Now().UTC(),
	}
	if actor.UserID != nil {
		row.UserID.Int64 = *actor.UserID
		row.UserID.Valid = true
	}
	return l.db.WithContext(ctx).Create(&row).Error
}
