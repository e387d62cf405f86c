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
		provider.stores.KnowledgeStore = NewKnowledgeStore(provider)
	})
}

// KnowledgeStore 处理知识表的操作
type KnowledgeStore struct {
	CommonFields
}

func NewKnowledgeStore(provider SqlProviderAchieve) *KnowledgeStore {
	store := &KnowledgeStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_KNOWLEDGE)
	store.SetAllColumns("id", "brain_id", "user_id", "file_name", "mime_type", "source", "source_link", "file_size", "file_sha1", "status", "created_at", "updated_at")
	return store
}

// Create 创建新的知识记录
func (s *KnowledgeStore) Create(ctx context.Context, data *types.Knowledge) error {
	if data.ID == "" {
		data.ID = utils.GenUniqIDStr()
	}
	now := time.Now().Unix()
	if data.CreatedAt == 0 {
		data.CreatedAt = now
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = now
	}
	if data.Status == "" {
		data.Status = types.KNOWLEDGE_STATUS_PROCESSING
	}

	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.BrainID, data.UserID, data.FileName, data.MimeType, data.Source, data.SourceLink,
			data.FileSize, data.FileSha1, data.Status, data.CreatedAt, data.UpdatedAt)

	_, err := s.exec(ctx, query)
	return err
}

// GetKnowledge 根据ID获取知识记录
func (s *KnowledgeStore) GetKnowledge(ctx context.Context, brainID, id string) (*types.Knowledge, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"brain_id": brainID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Knowledge
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListKnowledges 分页获取知识记录列表
func (s *KnowledgeStore) ListKnowledges(ctx context.Context, opts types.GetKnowledgeOptions, page, pageSize uint64) ([]*types.Knowledge, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC")
	opts.Apply(&query)
	query = paging(query, page, pageSize)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []*types.Knowledge
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *KnowledgeStore) Total(ctx context.Context, opts types.GetKnowledgeOptions) (uint64, error) {
	query := sq.Select("COUNT(*)").From(s.GetTable())
	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var res uint64
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return 0, err
	}
	return res, nil
}

func (s *KnowledgeStore) UpdateStatus(ctx context.Context, id string, status types.KnowledgeStatus) error {
	_, err := s.exec(ctx, sq.Update(s.GetTable()).
		Set("status", status).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id}))
	return err
}

func (s *KnowledgeStore) SetFileSha1(ctx context.Context, id, fileSha1 string) error {
	_, err := s.exec(ctx, sq.Update(s.GetTable()).
		Set("file_sha1", fileSha1).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id}))
	return err
}

// Delete 删除知识记录
func (s *KnowledgeStore) Delete(ctx context.Context, brainID, id string) error {
	_, err := s.exec(ctx, sq.Delete(s.GetTable()).Where(sq.Eq{"brain_id": brainID, "id": id}))
	return err
}
