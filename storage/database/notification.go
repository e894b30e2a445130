package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/learnflow/backend/core/approval"
)

type notificationRow struct {
	ID        int       `db:"id"`
	Kind      string    `db:"kind"`
	Message   string    `db:"message"`
	AccountID int       `db:"account_id"`
	IsRead    bool      `db:"is_read"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

func (r notificationRow) toNotification() approval.Notification {
	return approval.Notification{
		ID:        r.ID,
		Kind:      r.Kind,
		Message:   r.Message,
		AccountID: r.AccountID,
		IsRead:    r.IsRead,
		Status:    approval.DecisionStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

const notificationColumns = `id, kind, message, account_id, is_read, status, created_at`

type notificationRepository struct {
	db *sqlx.DB
}

var _ approval.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *sqlx.DB) approval.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateIfAbsent(ctx context.Context, n approval.Notification) (bool, error) {
	// unique (account_id, kind) index backs the idempotency guard
	res, err := repo.db.ExecContext(ctx, `
		INSERT INTO notifications (kind, message, account_id, is_read, status, created_at)
		VALUES ($1, $2, $3, FALSE, $4, $5)
		ON CONFLICT (account_id, kind) DO NOTHING`,
		n.Kind, n.Message, n.AccountID, n.Status, n.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id int) (approval.Notification, error) {
	var row notificationRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return approval.Notification{}, approval.ErrNotFound
		}
		return approval.Notification{}, err
	}
	return row.toNotification(), nil
}

func (repo *notificationRepository) RecentByKind(ctx context.Context, kind string) ([]approval.Notification, error) {
	var rows []notificationRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+notificationColumns+` FROM notifications WHERE kind = $1 ORDER BY created_at DESC`, kind)
	if err != nil {
		return nil, err
	}
	ns := make([]approval.Notification, 0, len(rows))
	for _, row := range rows {
		ns = append(ns, row.toNotification())
	}
	return ns, nil
}

func (repo *notificationRepository) MarkDecided(ctx context.Context, id int, status approval.DecisionStatus) (approval.Notification, error) {
	var row notificationRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE notifications SET status = $2, is_read = TRUE
		WHERE id = $1 AND status = $3
		RETURNING `+notificationColumns,
		id, status, approval.StatusPending,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			// either missing or no longer PENDING; look again to tell the caller which
			if _, gErr := repo.GetNotification(ctx, id); gErr != nil {
				return approval.Notification{}, gErr
			}
			return approval.Notification{}, approval.ErrAlreadyDecided
		}
		return approval.Notification{}, err
	}
	return row.toNotification(), nil
}
