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
		provider.stores.VectorStore = NewVectorStore(provider)
		provider.stores.BrainVectorStore = NewBrainVectorStore(provider)
	})
}

type VectorStore struct {
	CommonFields
}

func NewVectorStore(provider SqlProviderAchieve) *VectorStore {
	repo := &VectorStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_VECTORS)
	repo.SetAllColumns("id", "knowledge_id", "brain_id", "content", "metadata", "embedding", "original_length", "created_at")
	return repo
}

// BatchCreate 批量创建新的文本向量记录
func (s *VectorStore) BatchCreate(ctx context.Context, datas []types.Vector) error {
	if len(datas) == 0 {
		return nil
	}
	query := sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...)

	now := time.Now().Unix()
	for _, data := range datas {
		if data.CreatedAt == 0 {
			data.CreatedAt = now
		}
		metadata := string(data.Metadata)
		if metadata == "" {
			metadata = "{}"
		}
		query = query.Values(data.ID, data.KnowledgeID, data.BrainID, data.Content, metadata, data.Embedding, data.OriginalLength, data.CreatedAt)
	}

	_, err := s.exec(ctx, query)
	return err
}

func (s *VectorStore) CountByKnowledge(ctx context.Context, knowledgeID string) (int64, error) {
	queryString, args, err := sq.Select("COUNT(*)").From(s.GetTable()).Where(sq.Eq{"knowledge_id": knowledgeID}).ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var res int64
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return 0, err
	}
	return res, nil
}

func (s *VectorStore) ListIDsByKnowledge(ctx context.Context, knowledgeID string) ([]string, error) {
	queryString, args, err := sq.Select("id").From(s.GetTable()).Where(sq.Eq{"knowledge_id": knowledgeID}).ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []string
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *VectorStore) DeleteByKnowledge(ctx context.Context, knowledgeID string) error {
	_, err := s.exec(ctx, sq.Delete(s.GetTable()).Where(sq.Eq{"knowledge_id": knowledgeID}))
	return err
}

type BrainVectorStore struct {
	CommonFields
}

func NewBrainVectorStore(provider SqlProviderAchieve) *BrainVectorStore {
	repo := &BrainVectorStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_BRAIN_VECTORS)
	repo.SetAllColumns("vector_id", "file_sha1", "created_at")
	return repo
}

// Create links one vector to the fingerprint of its source file.
func (s *BrainVectorStore) Create(ctx context.Context, vectorID, fileSha1 string) error {
	_, err := s.exec(ctx, sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(vectorID, fileSha1, time.Now().Unix()))
	return err
}

func (s *BrainVectorStore) ListByFileSha1(ctx context.Context, fileSha1 string) ([]types.BrainVector, error) {
	queryString, args, err := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"file_sha1": fileSha1}).ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.BrainVector
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *BrainVectorStore) DeleteByVectorIDs(ctx context.Context, vectorIDs []string) error {
	if len(vectorIDs) == 0 {
		return nil
	}
	_, err := s.exec(ctx, sq.Delete(s.GetTable()).Where(sq.Eq{"vector_id": vectorIDs}))
	return err
}
