package dummydb

import (
	"context"
	"sort"

	"github.com/learnflow/backend/core/approval"
)

type notificationRepository struct {
	db *notificationTable
}

var _ approval.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) approval.Repository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateIfAbsent(ctx context.Context, n approval.Notification) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.AccountID == n.AccountID && existing.Kind == n.Kind {
			return false, nil
		}
	}
	repo.db.pkCount++
	n.ID = repo.db.pkCount
	repo.db.table[n.ID] = &n
	return true, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id int) (approval.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return *n, nil
	}
	return approval.Notification{}, approval.ErrNotFound
}

func (repo *notificationRepository) RecentByKind(ctx context.Context, kind string) ([]approval.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ns := make([]approval.Notification, 0, len(repo.db.table))
	for _, n := range repo.db.table {
		if n.Kind == kind {
			ns = append(ns, *n)
		}
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].CreatedAt.After(ns[j].CreatedAt) })
	return ns, nil
}

func (repo *notificationRepository) MarkDecided(ctx context.Context, id int, status approval.DecisionStatus) (approval.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.table[id]
	if !ok {
		return approval.Notification{}, approval.ErrNotFound
	}
	if n.Status != approval.StatusPending {
		return approval.Notification{}, approval.ErrAlreadyDecided
	}
	n.Status = status
	n.IsRead = true
	return *n, nil
}
