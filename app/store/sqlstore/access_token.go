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
		provider.stores.AccessTokenStore = NewAccessTokenStore(provider)
	})
}

type AccessTokenStore struct {
	CommonFields
}

func NewAccessTokenStore(provider SqlProviderAchieve) *AccessTokenStore {
	repo := &AccessTokenStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_ACCESS_TOKEN)
	repo.SetAllColumns("id", "appid", "user_id", "token", "version", "created_at", "expires_at", "info")
	return repo
}

// Create 创建新的 access_token 记录
func (s *AccessTokenStore) Create(ctx context.Context, data types.AccessToken) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.Version == "" {
		data.Version = types.DEFAULT_ACCESS_TOKEN_VERSION
	}
	_, err := s.exec(ctx, sq.Insert(s.GetTable()).
		Columns("user_id", "appid", "token", "version", "created_at", "expires_at", "info").
		Values(data.UserID, data.Appid, data.Token, data.Version, data.CreatedAt, data.ExpiresAt, data.Info))
	return err
}

// GetAccessToken 获取未过期的 access_token 记录
func (s *AccessTokenStore) GetAccessToken(ctx context.Context, appid, token string) (*types.AccessToken, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"appid": appid, "token": token}).
		Where(sq.Gt{"expires_at": time.Now().Unix()})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.AccessToken
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *AccessTokenStore) Delete(ctx context.Context, appid, userID string, id int64) error {
	_, err := s.exec(ctx, sq.Delete(s.GetTable()).Where(sq.Eq{"appid": appid, "user_id": userID, "id": id}))
	return err
}
