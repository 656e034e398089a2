package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libracore/circulation-service/pkg/kafka"
	"github.com/libracore/circulation-service/stats/internal/model"
)

type Repository interface {
	Record(ctx context.Context, event kafka.EventCirculation) error
	GetStats(ctx context.Context) (model.StatsInfo, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const transactionsTableName = `transactions`

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Record appends the event to the ledger. The consumer delivers
// at-least-once, so replays are dropped on the event uid.
func (r *repository) Record(ctx context.Context, event kafka.EventCirculation) error {
	query, args, err := qb.Insert(transactionsTableName).
		Columns("event_uid", "book_id", "action", "username", "timestamp").
		Values(event.EventUID, event.BookID, event.Action, event.UserName, event.Timestamp).
		Suffix("on conflict (event_uid) do nothing").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("Record", zap.String("q", query), zap.Any("args", args))
		return errors.Wrap(err, "record transaction")
	}
	return nil
}

func (r *repository) GetStats(ctx context.Context) (model.StatsInfo, error) {
	const totalsQuery = `
	select count(*) as total, max(timestamp) as last_activity
	from transactions`

	var totals struct {
		Total        int          `db:"total"`
		LastActivity sql.NullTime `db:"last_activity"`
	}
	if err := r.db.GetContext(ctx, &totals, totalsQuery); err != nil {
		return model.StatsInfo{}, errors.Wrap(err, "stats totals")
	}

	query, args, err := qb.Select("action", "count(*) as cnt").
		From(transactionsTableName).
		GroupBy("action").
		OrderBy("cnt desc", "action asc").
		ToSql()
	if err != nil {
		return model.StatsInfo{}, err
	}

	byAction := make([]model.ActionCount, 0)
	if err := r.db.SelectContext(ctx, &byAction, query, args...); err != nil {
		return model.StatsInfo{}, errors.Wrap(err, "stats by action")
	}

	info := model.StatsInfo{
		TotalEvents: totals.Total,
		ByAction:    byAction,
	}
	if totals.LastActivity.Valid {
		t := totals.LastActivity.Time
		info.LastActivity = &t
	}
	return info, nil
}
