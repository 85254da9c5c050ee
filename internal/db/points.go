package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qboard/qboard/internal/engine"
	"github.com/qboard/qboard/internal/models"
)

// PointsLedger recomputes per-user reputation inputs from current post and
// vote state. Every metric is a full recount, so repeating a recompute after
// a retry can never drift the value.
type PointsLedger struct {
	db *gorm.DB
}

// NewPointsLedger creates a points ledger.
func NewPointsLedger(db *gorm.DB) *PointsLedger {
	return &PointsLedger{db: db}
}

// Recompute refreshes the named metrics for one user, creating the
// user_points row on first touch.
func (l *PointsLedger) Recompute(ctx context.Context, userID int64, metrics ...engine.Metric) error {
	if len(metrics) == 0 {
		return nil
	}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserPoints{UserID: userID}).Error
	if err != nil {
		return err
	}
	for _, m := range metrics {
		expr, err := metricExpr(m)
		if err != nil {
			return err
		}
		err = l.db.WithContext(ctx).Model(&models.UserPoints{}).
			Where("user_id = ?", userID).
			Update(string(m), gorm.Expr(expr, userID)).Error
		if err != nil {
			return fmt.Errorf("recompute %s: %w", m, err)
		}
	}
	return nil
}

// metricExpr returns the recount subquery for one metric. Each takes the
// user ID as its single parameter.
func metricExpr(m engine.Metric) (string, error) {
	switch m {
	case engine.MetricQPosts:
		return `(SELECT COUNT(*) FROM posts WHERE user_id = ? AND type = 'Q')`, nil
	case engine.MetricAPosts:
		return `(SELECT COUNT(*) FROM posts WHERE user_id = ? AND type = 'A')`, nil
	case engine.MetricCPosts:
		return `(SELECT COUNT(*) FROM posts WHERE user_id = ? AND type = 'C')`, nil
	case engine.MetricASelects:
		return `(SELECT COUNT(*) FROM posts WHERE user_id = ? AND type = 'Q' AND sel_child_id IS NOT NULL)`, nil
	case engine.MetricASelecteds:
		return `(SELECT COUNT(*) FROM posts a JOIN posts q ON q.sel_child_id = a.id WHERE a.user_id = ? AND a.type = 'A')`, nil
	case engine.MetricQVoteds:
		return votedExpr("Q"), nil
	case engine.MetricAVoteds:
		return votedExpr("A"), nil
	case engine.MetricCVoteds:
		return votedExpr("C"), nil
	case engine.MetricQUpvotes:
		return castExpr("Q", "> 0"), nil
	case engine.MetricQDownvotes:
		return castExpr("Q", "< 0"), nil
	case engine.MetricAUpvotes:
		return castExpr("A", "> 0"), nil
	case engine.MetricADownvotes:
		return castExpr("A", "< 0"), nil
	case engine.MetricUpvoteds:
		return receivedExpr("> 0"), nil
	case engine.MetricDownvoteds:
		return receivedExpr("< 0"), nil
	}
	return "", fmt.Errorf("unknown points metric %q", m)
}

// votedExpr counts votes received on the user's posts of one kind, in any
// status of that kind.
func votedExpr(kind string) string {
	return `(SELECT COALESCE(SUM(ABS(v.vote)), 0) FROM post_votes v ` +
		`JOIN posts p ON p.id = v.post_id ` +
		`WHERE p.user_id = ? AND (p.type = '` + kind + `' OR p.type LIKE '` + kind + `\_%'))`
}

// castExpr counts votes of one sign the user cast on posts of one kind.
func castExpr(kind, sign string) string {
	return `(SELECT COUNT(*) FROM post_votes v ` +
		`JOIN posts p ON p.id = v.post_id ` +
		`WHERE v.user_id = ? AND v.vote ` + sign +
		` AND (p.type = '` + kind + `' OR p.type LIKE '` + kind + `\_%'))`
}

// receivedExpr counts votes of one sign received on any of the user's posts.
func receivedExpr(sign string) string {
	return `(SELECT COUNT(*) FROM post_votes v ` +
		`JOIN posts p ON p.id = v.post_id ` +
		`WHERE p.user_id = ? AND v.vote ` + sign + `)`
}
