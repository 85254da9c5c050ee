package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Kind is the base type of a post, orthogonal to its moderation status.
type Kind string

const (
	KindQuestion Kind = "Q"
	KindAnswer   Kind = "A"
	KindComment  Kind = "C"
	KindNote     Kind = "NOTE"
)

// Status is the moderation state of a post. The zero value is normal
// (publicly visible).
type Status int

const (
	StatusNormal Status = 0
	StatusHidden Status = 1
	StatusQueued Status = 2
)

// ParseStatus validates a caller-supplied status code.
func ParseStatus(v int) (Status, error) {
	switch Status(v) {
	case StatusNormal, StatusHidden, StatusQueued:
		return Status(v), nil
	}
	return 0, fmt.Errorf("unknown post status %d", v)
}

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusHidden:
		return "hidden"
	case StatusQueued:
		return "queued"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// TypeTag combines kind and status into the single tag stored in the type
// column ("Q", "A_HIDDEN", "C_QUEUED", ...). The pair form is used
// everywhere else; the combined tag exists only at the storage boundary.
func TypeTag(k Kind, s Status) string {
	switch s {
	case StatusHidden:
		return string(k) + "_HIDDEN"
	case StatusQueued:
		return string(k) + "_QUEUED"
	}
	return string(k)
}

// SplitTypeTag is the inverse of TypeTag.
func SplitTypeTag(tag string) (Kind, Status, error) {
	base := tag
	status := StatusNormal
	if cut, ok := strings.CutSuffix(tag, "_HIDDEN"); ok {
		base, status = cut, StatusHidden
	} else if cut, ok := strings.CutSuffix(tag, "_QUEUED"); ok {
		base, status = cut, StatusQueued
	}
	switch Kind(base) {
	case KindQuestion, KindAnswer, KindComment, KindNote:
		return Kind(base), status, nil
	}
	return "", 0, fmt.Errorf("unknown post type tag %q", tag)
}

// Post is the central entity. Questions, answers, comments and close-reason
// notes share one row shape discriminated by the type tag.
type Post struct {
	ID           int64          `gorm:"primaryKey;column:id"`
	ParentID     sql.NullInt64  `gorm:"column:parent_id;index"`
	Type         string         `gorm:"type:varchar(8);not null;column:type;index"`
	UserID       sql.NullInt64  `gorm:"column:user_id;index"`
	Name         string         `gorm:"type:varchar(40);column:name"`
	CreateIP     string         `gorm:"type:varchar(45);column:create_ip"`
	CreatedAt    time.Time      `gorm:"not null;column:created_at"`
	UpdatedAt    sql.NullTime   `gorm:"column:updated_at"`
	UpdatedByID  sql.NullInt64  `gorm:"column:updated_by_id"`
	UpdateIP     string         `gorm:"type:varchar(45);column:update_ip"`
	Title        string         `gorm:"type:varchar(255);column:title"`
	Content      string         `gorm:"type:text;column:content"`
	Format       string         `gorm:"type:varchar(16);column:format"`
	Tags         string         `gorm:"type:varchar(255);column:tags"`
	CategoryID   sql.NullInt64  `gorm:"column:category_id;index"`
	CategoryPath string         `gorm:"type:varchar(255);column:category_path"`
	Closed       bool           `gorm:"not null;default:false;column:closed"`
	ClosedByID   sql.NullInt64  `gorm:"column:closed_by_id"`
	SelChildID   sql.NullInt64  `gorm:"column:sel_child_id"`
	NetVotes     int            `gorm:"not null;default:0;column:net_votes"`
	FlagCount    int            `gorm:"not null;default:0;column:flag_count"`
	ACount       int            `gorm:"not null;default:0;column:acount"`
	AMaxVote     int            `gorm:"not null;default:0;column:amaxvote"`
	Notify       sql.NullString `gorm:"type:varchar(255);column:notify"`
	Hotness      float64        `gorm:"column:hotness"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// BaseKind returns the kind half of the type tag. Unknown tags map to an
// empty kind; they cannot be produced through the engine.
func (p *Post) BaseKind() Kind {
	k, _, err := SplitTypeTag(p.Type)
	if err != nil {
		return ""
	}
	return k
}

// Status returns the moderation-status half of the type tag.
func (p *Post) Status() Status {
	_, s, err := SplitTypeTag(p.Type)
	if err != nil {
		return StatusNormal
	}
	return s
}

// IsQuestion reports whether the post is a question of any status.
func (p *Post) IsQuestion() bool { return p.BaseKind() == KindQuestion }

// Selected reports whether id is this question's selected answer.
func (p *Post) Selected(id int64) bool {
	return p.SelChildID.Valid && p.SelChildID.Int64 == id
}

// ChildOf reports whether the post's parent is id.
func (p *Post) ChildOf(id int64) bool {
	return p.ParentID.Valid && p.ParentID.Int64 == id
}
