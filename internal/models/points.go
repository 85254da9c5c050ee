package models

// UserPoints caches per-user reputation inputs. Each column is recomputed
// from current post/vote state by the points ledger, never adjusted by
// delta, so a recompute is always safe to repeat.
type UserPoints struct {
	UserID     int64 `gorm:"primaryKey;column:user_id"`
	QPosts     int64 `gorm:"not null;default:0;column:qposts"`
	APosts     int64 `gorm:"not null;default:0;column:aposts"`
	CPosts     int64 `gorm:"not null;default:0;column:cposts"`
	ASelects   int64 `gorm:"not null;default:0;column:aselects"`
	ASelecteds int64 `gorm:"not null;default:0;column:aselecteds"`
	QVoteds    int64 `gorm:"not null;default:0;column:qvoteds"`
	AVoteds    int64 `gorm:"not null;default:0;column:avoteds"`
	CVoteds    int64 `gorm:"not null;default:0;column:cvoteds"`
	QUpvotes   int64 `gorm:"not null;default:0;column:qupvotes"`
	QDownvotes int64 `gorm:"not null;default:0;column:qdownvotes"`
	AUpvotes   int64 `gorm:"not null;default:0;column:aupvotes"`
	ADownvotes int64 `gorm:"not null;default:0;column:adownvotes"`
	Upvoteds   int64 `gorm:"not null;default:0;column:upvoteds"`
	Downvoteds int64 `gorm:"not null;default:0;column:downvoteds"`
}

// TableName specifies the table name for UserPoints
func (UserPoints) TableName() string {
	return "user_points"
}
