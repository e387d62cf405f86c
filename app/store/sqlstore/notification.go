package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/brainhub/brain-ingest/pkg/register"
	"github.com/brainhub/brain-ingest/pkg/types"
	"github.com/brainhub/brain-ingest/pkg/utils"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.NotificationStore = NewNotificationStore(provider)
	})
}

type NotificationStore struct {
	CommonFields
}

func NewNotificationStore(provider SqlProviderAchieve) *NotificationStore {
	store := &NotificationStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_NOTIFICATION)
	store.SetAllColumns("id", "user_id", "brain_id", "bulk_id", "title", "category", "status", "description", "created_at", "updated_at")
	return store
}

func (s *NotificationStore) Create(ctx context.Context, data *types.Notification) error {
	if data.ID == "" {
		data.ID = utils.GenUniqIDStr()
	}
	now := time.Now().Unix()
	if data.CreatedAt == 0 {
		data.CreatedAt = now
	}
	data.UpdatedAt = data.CreatedAt

	_, err := s.exec(ctx, sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.UserID, data.BrainID, data.BulkID, data.Title, data.Category, data.Status, data.Description, data.CreatedAt, data.UpdatedAt))
	return err
}

func (s *NotificationStore) Get(ctx context.Context, id string) (*types.Notification, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Notification
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *NotificationStore) Update(ctx context.Context, id string, data types.NotificationUpdate) error {
	query := sq.Update(s.GetTable()).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})
	if data.Status != "" {
		query = query.Set("status", data.Status)
	}
	if data.Description != "" {
		query = query.Set("description", data.Description)
	}

	_, err := s.exec(ctx, query)
	return err
}

func (s *NotificationStore) DeleteBefore(ctx context.Context, ts int64, statuses []types.NotificationStatus) (int64, error) {
	query := sq.Delete(s.GetTable()).Where(sq.Lt{"updated_at": ts})
	if len(statuses) > 0 {
		query = query.Where(sq.Eq{"status": statuses})
	}
	return s.exec(ctx, query)
}
