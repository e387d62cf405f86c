package v1

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/brainhub/brain-ingest/app/core"
	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
	"github.com/brainhub/brain-ingest/pkg/types"
)

type KnowledgeRepository interface {
	// GetKnowledge returns sql.ErrNoRows when the knowledge does not exist in the brain.
	GetKnowledge(ctx context.Context, brainID, id string) (*types.Knowledge, error)
	ListKnowledges(ctx context.Context, opts types.GetKnowledgeOptions, page, pageSize uint64) ([]*types.Knowledge, error)
	Total(ctx context.Context, opts types.GetKnowledgeOptions) (uint64, error)
	Delete(ctx context.Context, brainID, id string) error
}

type KnowledgeVectorRemover interface {
	ListIDsByKnowledge(ctx context.Context, knowledgeID string) ([]string, error)
	DeleteByKnowledge(ctx context.Context, knowledgeID string) error
}

type VectorLinkRemover interface {
	DeleteByVectorIDs(ctx context.Context, vectorIDs []string) error
}

type Transactor interface {
	Transaction(ctx context.Context, next func(ctx context.Context) error) error
}

type BrainFileStore interface {
	DeleteFile(ctx context.Context, fullPath string) error
	ListFiles(ctx context.Context, prefix string) ([]types.ObjectInfo, error)
}

// KnowledgeDeps are the collaborators of a KnowledgeLogic.
type KnowledgeDeps struct {
	Authorizer Authorizer
	Knowledge  KnowledgeRepository
	Vectors    KnowledgeVectorRemover
	Links      VectorLinkRemover
	Tx         Transactor
	Files      BrainFileStore
}

func KnowledgeDepsFromCore(core *core.Core) KnowledgeDeps {
	return KnowledgeDeps{
		Authorizer: NewBrainAuthorizer(core.Store().BrainUserStore(), core.Srv().RBAC()),
		Knowledge:  core.Store().KnowledgeStore(),
		Vectors:    core.Store().VectorStore(),
		Links:      core.Store().BrainVectorStore(),
		Tx:         core.Store(),
		Files:      core.FileStorage(),
	}
}

type KnowledgeLogic struct {
	UserInfo
	ctx  context.Context
	deps KnowledgeDeps
}

func NewKnowledgeLogic(ctx context.Context, core *core.Core) *KnowledgeLogic {
	return NewKnowledgeLogicWithDeps(ctx, KnowledgeDepsFromCore(core))
}

func NewKnowledgeLogicWithDeps(ctx context.Context, deps KnowledgeDeps) *KnowledgeLogic {
	return &KnowledgeLogic{
		ctx:      ctx,
		deps:     deps,
		UserInfo: SetupUserInfo(ctx),
	}
}

func (l *KnowledgeLogic) GetKnowledge(brainID, id string) (*types.Knowledge, error) {
	if err := l.deps.Authorizer.ValidateBrainAuthorization(l.ctx, brainID, l.GetUserInfo().User, ReadRoles); err != nil {
		return nil, errors.Trace("KnowledgeLogic.GetKnowledge", err)
	}

	data, err := l.deps.Knowledge.GetKnowledge(l.ctx, brainID, id)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("KnowledgeLogic.GetKnowledge.KnowledgeStore.GetKnowledge", i18n.ERROR_INTERNAL, err)
	}

	if data == nil {
		return nil, errors.New("KnowledgeLogic.GetKnowledge.KnowledgeStore.GetKnowledge.nil", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
	}

	return data, nil
}

func (l *KnowledgeLogic) ListKnowledges(brainID string, status types.KnowledgeStatus, page, pagesize uint64) ([]*types.Knowledge, uint64, error) {
	if err := l.deps.Authorizer.ValidateBrainAuthorization(l.ctx, brainID, l.GetUserInfo().User, ReadRoles); err != nil {
		return nil, 0, errors.Trace("KnowledgeLogic.ListKnowledges", err)
	}

	opts := types.GetKnowledgeOptions{
		BrainID: brainID,
		Status:  status,
	}
	list, err := l.deps.Knowledge.ListKnowledges(l.ctx, opts, page, pagesize)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return nil, 0, errors.New("KnowledgeLogic.ListKnowledge.KnowledgeStore.ListKnowledge", i18n.ERROR_INTERNAL, err)
	}

	total, err := l.deps.Knowledge.Total(l.ctx, opts)
	if err != nil {
		return nil, 0, errors.New("KnowledgeLogic.ListKnowledge.KnowledgeStore.Total", i18n.ERROR_INTERNAL, err)
	}

	return list, total, nil
}

// Delete removes the knowledge row with its vectors and links, then the stored
// file. Afterwards the same file name can be uploaded again.
func (l *KnowledgeLogic) Delete(brainID, id string) error {
	if err := l.deps.Authorizer.ValidateBrainAuthorization(l.ctx, brainID, l.GetUserInfo().User, WriteRoles); err != nil {
		return errors.Trace("KnowledgeLogic.Delete", err)
	}

	knowledge, err := l.deps.Knowledge.GetKnowledge(l.ctx, brainID, id)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return errors.New("KnowledgeLogic.KnowledgeStore.GetKnowledge", i18n.ERROR_INTERNAL, err)
	}
	if knowledge == nil {
		return nil
	}

	err = l.deps.Tx.Transaction(l.ctx, func(ctx context.Context) error {
		vectorIDs, err := l.deps.Vectors.ListIDsByKnowledge(ctx, id)
		if err != nil {
			return errors.New("KnowledgeLogic.Delete.VectorStore.ListIDsByKnowledge", i18n.ERROR_INTERNAL, err)
		}

		if err := l.deps.Links.DeleteByVectorIDs(ctx, vectorIDs); err != nil {
			return errors.New("KnowledgeLogic.Delete.BrainVectorStore.DeleteByVectorIDs", i18n.ERROR_INTERNAL, err)
		}

		if err := l.deps.Vectors.DeleteByKnowledge(ctx, id); err != nil {
			return errors.New("KnowledgeLogic.Delete.VectorStore.DeleteByKnowledge", i18n.ERROR_INTERNAL, err)
		}

		if err := l.deps.Knowledge.Delete(ctx, brainID, id); err != nil {
			return errors.New("KnowledgeLogic.Delete.KnowledgeStore.Delete", i18n.ERROR_INTERNAL, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// 行已删除，对象删除失败只记录日志，同名文件重传会命中 duplicate
	fullPath := types.GenBrainFilePath(brainID, knowledge.FileName)
	if err := l.deps.Files.DeleteFile(l.ctx, fullPath); err != nil {
		slog.Error("Failed to delete knowledge file from storage", slog.String("knowledge_id", id),
			slog.String("brain_id", brainID), slog.String("path", fullPath), slog.String("error", err.Error()))
	}
	return nil
}

// ListFiles lists the objects stored under the brain.
func (l *KnowledgeLogic) ListFiles(brainID string) ([]types.ObjectInfo, error) {
	if err := l.deps.Authorizer.ValidateBrainAuthorization(l.ctx, brainID, l.GetUserInfo().User, ReadRoles); err != nil {
		return nil, errors.Trace("KnowledgeLogic.ListFiles", err)
	}

	list, err := l.deps.Files.ListFiles(l.ctx, brainID+"/")
	if err != nil {
		return nil, errors.New("KnowledgeLogic.ListFiles.FileStorage.ListFiles", i18n.ERROR_INTERNAL, err)
	}
	return list, nil
}
