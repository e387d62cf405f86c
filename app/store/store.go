package store

import (
	"context"

	"github.com/brainhub/brain-ingest/pkg/sqlstore"
	"github.com/brainhub/brain-ingest/pkg/types"
)

// KnowledgeStore 定义 KnowledgeStore 的方法集合
type KnowledgeStore interface {
	sqlstore.SqlCommons
	// Create 创建新的知识记录, data.ID 为空时由 store 生成
	Create(ctx context.Context, data *types.Knowledge) error
	GetKnowledge(ctx context.Context, brainID, id string) (*types.Knowledge, error)
	ListKnowledges(ctx context.Context, opts types.GetKnowledgeOptions, page, pageSize uint64) ([]*types.Knowledge, error)
	Total(ctx context.Context, opts types.GetKnowledgeOptions) (uint64, error)
	UpdateStatus(ctx context.Context, id string, status types.KnowledgeStatus) error
	SetFileSha1(ctx context.Context, id, fileSha1 string) error
	Delete(ctx context.Context, brainID, id string) error
}

type NotificationStore interface {
	sqlstore.SqlCommons
	// Create 创建通知, data.ID 为空时由 store 生成
	Create(ctx context.Context, data *types.Notification) error
	Get(ctx context.Context, id string) (*types.Notification, error)
	Update(ctx context.Context, id string, data types.NotificationUpdate) error
	// DeleteBefore removes notifications in the given statuses last updated before ts.
	DeleteBefore(ctx context.Context, ts int64, statuses []types.NotificationStatus) (int64, error)
}

type BrainStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.Brain) error
	GetBrain(ctx context.Context, id string) (*types.Brain, error)
	UpdateLastUpdated(ctx context.Context, id string) error
}

type BrainUserStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.BrainUser) error
	GetBrainUser(ctx context.Context, brainID, userID string) (*types.BrainUser, error)
}

type UserSettingsStore interface {
	sqlstore.SqlCommons
	// Get returns sql.ErrNoRows when the user has no settings.
	Get(ctx context.Context, userID string) (*types.UserSettings, error)
	Upsert(ctx context.Context, data types.UserSettings) error
}

// TODO support other vector db
// current only pg
type VectorStore interface {
	sqlstore.SqlCommons
	BatchCreate(ctx context.Context, datas []types.Vector) error
	CountByKnowledge(ctx context.Context, knowledgeID string) (int64, error)
	ListIDsByKnowledge(ctx context.Context, knowledgeID string) ([]string, error)
	DeleteByKnowledge(ctx context.Context, knowledgeID string) error
}

type BrainVectorStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, vectorID, fileSha1 string) error
	ListByFileSha1(ctx context.Context, fileSha1 string) ([]types.BrainVector, error)
	DeleteByVectorIDs(ctx context.Context, vectorIDs []string) error
}

type AccessTokenStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.AccessToken) error
	GetAccessToken(ctx context.Context, appid, token string) (*types.AccessToken, error)
	Delete(ctx context.Context, appid, userID string, id int64) error
}
