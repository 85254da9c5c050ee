package models

// Vote is a single user's +1/-1 on a post. Rows are owned by the post and
// deleted with it through the storage cascade.
type Vote struct {
	PostID int64 `gorm:"primaryKey;column:post_id"`
	UserID int64 `gorm:"primaryKey;column:user_id"`
	Vote   int   `gorm:"not null;column:vote"`
}

// TableName specifies the table name for Vote
func (Vote) TableName() string {
	return "post_votes"
}
