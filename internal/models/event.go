package models

import (
	"database/sql"
	"time"
)

// EventLog is the durable record of a reported domain event. Params holds
// the JSON-encoded parameter map; consumers must tolerate additional keys.
type EventLog struct {
	ID        int64         `gorm:"primaryKey;autoIncrement;column:id"`
	Event     string        `gorm:"type:varchar(20);not null;column:event;index"`
	UserID    sql.NullInt64 `gorm:"column:user_id"`
	Handle    string        `gorm:"type:varchar(40);column:handle"`
	CookieID  string        `gorm:"type:varchar(40);column:cookie_id"`
	Params    string        `gorm:"type:text;column:params"`
	CreatedAt time.Time     `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for EventLog
func (EventLog) TableName() string {
	return "event_log"
}
