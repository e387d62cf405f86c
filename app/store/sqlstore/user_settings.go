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
		provider.stores.UserSettingsStore = NewUserSettingsStore(provider)
	})
}

type UserSettingsStore struct {
	CommonFields
}

func NewUserSettingsStore(provider SqlProviderAchieve) *UserSettingsStore {
	store := &UserSettingsStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_USER_SETTINGS)
	store.SetAllColumns("user_id", "max_brain_size", "updated_at")
	return store
}

func (s *UserSettingsStore) Get(ctx context.Context, userID string) (*types.UserSettings, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"user_id": userID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.UserSettings
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *UserSettingsStore) Upsert(ctx context.Context, data types.UserSettings) error {
	data.UpdatedAt = time.Now().Unix()
	_, err := s.exec(ctx, sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.UserID, data.MaxBrainSize, data.UpdatedAt).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET max_brain_size = EXCLUDED.max_brain_size, updated_at = EXCLUDED.updated_at"))
	return err
}
