package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/brainhub/brain-ingest/pkg/register"
	"github.com/brainhub/brain-ingest/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.BrainStore = NewBrainStore(provider)
		provider.stores.BrainUserStore = NewBrainUserStore(provider)
	})
}

type BrainStore struct {
	CommonFields
}

func NewBrainStore(provider SqlProviderAchieve) *BrainStore {
	store := &BrainStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_BRAIN)
	store.SetAllColumns("id", "name", "description", "last_update", "created_at")
	return store
}

func (s *BrainStore) Create(ctx context.Context, data types.Brain) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.LastUpdate == 0 {
		data.LastUpdate = data.CreatedAt
	}
	_, err := s.exec(ctx, sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.Name, data.Description, data.LastUpdate, data.CreatedAt))
	return err
}

func (s *BrainStore) GetBrain(ctx context.Context, id string) (*types.Brain, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Brain
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateLastUpdated touches the brain so readers see new content.
func (s *BrainStore) UpdateLastUpdated(ctx context.Context, id string) error {
	_, err := s.exec(ctx, sq.Update(s.GetTable()).
		Set("last_update", time.Now().Unix()).
		Where(sq.Eq{"id": id}))
	return err
}

type BrainUserStore struct {
	CommonFields
}

func NewBrainUserStore(provider SqlProviderAchieve) *BrainUserStore {
	store := &BrainUserStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_BRAIN_USER)
	store.SetAllColumns("brain_id", "user_id", "role", "created_at")
	return store
}

func (s *BrainUserStore) Create(ctx context.Context, data types.BrainUser) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	_, err := s.exec(ctx, sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.BrainID, data.UserID, data.Role, data.CreatedAt).
		Suffix("ON CONFLICT (brain_id, user_id) DO UPDATE SET role = EXCLUDED.role"))
	return err
}

func (s *BrainUserStore) GetBrainUser(ctx context.Context, brainID, userID string) (*types.BrainUser, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"brain_id": brainID, "user_id": userID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.BrainUser
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}
