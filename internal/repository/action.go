package repository

import (
	"context"

	"github.com/bookhaven/lending-service/internal/model"
)

func (r *repository) CreateAction(ctx context.Context, entry model.ActionLog) error {
	q, args, err := qb.Insert(actionsTableName).
		Columns("description", "author", "action", "date").
		Values(entry.Description, entry.Author, entry.Action, entry.Date).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

// ListActions returns the latest 100 entries that carry a valid date.
func (r *repository) ListActions(ctx context.Context) ([]model.ActionLog, error) {
	actions := make([]model.ActionLog, 0)
	err := r.db.SelectContext(ctx, &actions, `
select id, description, author, action, date
from actions
where date is not null
order by date desc
limit 100`)
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// CleanupActions purges audit entries left without a timestamp.
func (r *repository) CleanupActions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `delete from actions where date is null`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
