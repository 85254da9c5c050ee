package models

// SiteCount is one named site-wide aggregate counter (qcount, acount,
// queuedcount, ...). The lifecycle engine is the sole writer; values are
// denormalized caches of predicates over Post rows.
type SiteCount struct {
	Name  string `gorm:"primaryKey;type:varchar(32);column:name"`
	Value int64  `gorm:"not null;default:0;column:value"`
}

// TableName specifies the table name for SiteCount
func (SiteCount) TableName() string {
	return "site_counts"
}
