package v1

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/brainhub/brain-ingest/app/core"
	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
	"github.com/brainhub/brain-ingest/pkg/types"
)

const (
	UPLOAD_STARTED_MESSAGE        = "File processing has started."
	UPLOAD_FAILED_DESCRIPTION     = "There was an error uploading the file"
	UPLOAD_DUPLICATED_DESCRIPTION = "File %s already exists in storage."
)

type QuotaProvider interface {
	// Get returns sql.ErrNoRows when the user has no settings.
	Get(ctx context.Context, userID string) (*types.UserSettings, error)
}

type NotificationWriter interface {
	// Get returns sql.ErrNoRows when the notification does not exist.
	Get(ctx context.Context, id string) (*types.Notification, error)
	Create(ctx context.Context, data *types.Notification) error
	Update(ctx context.Context, id string, data types.NotificationUpdate) error
}

type FileSaver interface {
	// SaveFile returns types.ErrObjectAlreadyExists when fullPath is taken.
	SaveFile(ctx context.Context, fullPath string, content []byte) error
}

type KnowledgeCreator interface {
	Create(ctx context.Context, data *types.Knowledge) error
}

type JobQueue interface {
	EnqueueProcessFile(ctx context.Context, job types.ProcessingJob) error
}

// IngestorDeps are the collaborators of an Ingestor.
type IngestorDeps struct {
	Authorizer          Authorizer
	Quota               QuotaProvider
	Notifications       NotificationWriter
	Storage             FileSaver
	Knowledge           KnowledgeCreator
	Queue               JobQueue
	Metrics             *core.Metrics
	DefaultMaxBrainSize int64
}

// Ingestor accepts uploads: it stores the bytes, records the knowledge row and
// schedules the processing job, in that order.
type Ingestor struct {
	IngestorDeps
}

func NewIngestor(deps IngestorDeps) *Ingestor {
	if deps.DefaultMaxBrainSize <= 0 {
		deps.DefaultMaxBrainSize = types.DEFAULT_MAX_BRAIN_SIZE
	}
	return &Ingestor{IngestorDeps: deps}
}

func NewIngestorFromCore(core *core.Core) *Ingestor {
	return NewIngestor(IngestorDeps{
		Authorizer:          NewBrainAuthorizer(core.Store().BrainUserStore(), core.Srv().RBAC()),
		Quota:               core.Store().UserSettingsStore(),
		Notifications:       core.Store().NotificationStore(),
		Storage:             core.FileStorage(),
		Knowledge:           core.Store().KnowledgeStore(),
		Queue:               core.IngestQueue(),
		Metrics:             core.Metrics(),
		DefaultMaxBrainSize: core.Cfg().Ingest.DefaultMaxBrainSize,
	})
}

func (l *Ingestor) Submit(ctx context.Context, req types.UploadRequest) (types.UploadResult, error) {
	res, err := l.submit(ctx, req)
	if err != nil {
		l.Metrics.UploadInc(core.METRIC_RESULT_FAILED, len(req.File))
		return types.UploadResult{}, err
	}
	l.Metrics.UploadInc(core.METRIC_RESULT_SUCCESS, len(req.File))
	return res, nil
}

// Admit runs the checks that need no file content against the declared size.
// Submit repeats them on the actual bytes.
func (l *Ingestor) Admit(ctx context.Context, req types.UploadRequest, size int64) error {
	if err := l.admit(ctx, req, size); err != nil {
		l.Metrics.UploadInc(core.METRIC_RESULT_FAILED, 0)
		return err
	}
	return nil
}

func (l *Ingestor) admit(ctx context.Context, req types.UploadRequest, size int64) error {
	if size <= 0 {
		return errors.New("Ingestor.Submit.EmptyFile", i18n.ERROR_EMPTY_FILE, nil).Code(http.StatusBadRequest)
	}
	if req.FileName == "" || req.BrainID == "" {
		return errors.New("Ingestor.Submit.InvalidArgument", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}
	if utf8.RuneCountInString(req.FileName) > types.MAX_FILE_NAME_LENGTH ||
		utf8.RuneCountInString(types.FileExtension(req.FileName)) > types.MAX_FILE_EXTENSION_LENGTH {
		return errors.New("Ingestor.Submit.FileNameTooLong", i18n.ERROR_INVALIDARGUMENT,
			fmt.Errorf("file name %q exceeds the storable length", req.FileName)).Code(http.StatusBadRequest)
	}
	if req.NotificationID != "" {
		if err := l.checkNotificationOwner(ctx, req); err != nil {
			return errors.Trace("Ingestor.Submit.Notification", err)
		}
	}

	if err := l.Authorizer.ValidateBrainAuthorization(ctx, req.BrainID, req.UserID, WriteRoles); err != nil {
		return errors.Trace("Ingestor.Submit.Authorize", err)
	}

	if err := l.checkQuota(ctx, req.UserID, size); err != nil {
		l.markNotificationError(ctx, req.NotificationID, UPLOAD_FAILED_DESCRIPTION)
		return errors.Trace("Ingestor.Submit.Quota", err)
	}
	return nil
}

func (l *Ingestor) submit(ctx context.Context, req types.UploadRequest) (types.UploadResult, error) {
	if err := l.admit(ctx, req, int64(len(req.File))); err != nil {
		return types.UploadResult{}, err
	}

	notificationID := req.NotificationID
	if notificationID == "" {
		notificationID = l.createNotification(ctx, req)
	}

	fullPath := types.GenBrainFilePath(req.BrainID, req.FileName)
	if err := l.Storage.SaveFile(ctx, fullPath, req.File); err != nil {
		if stderrors.Is(err, types.ErrObjectAlreadyExists) {
			desc := fmt.Sprintf(UPLOAD_DUPLICATED_DESCRIPTION, req.FileName)
			l.markNotificationError(ctx, notificationID, desc)
			return types.UploadResult{}, errors.New("Ingestor.Submit.FileStorage.SaveFile", i18n.ERROR_FILE_ALREADY_EXISTS,
				fmt.Errorf("%w: %s", errors.ErrDuplicateFile, fullPath)).
				Code(http.StatusForbidden).
				WithData(map[string]interface{}{"file_name": req.FileName})
		}

		l.markNotificationError(ctx, notificationID, UPLOAD_FAILED_DESCRIPTION)
		return types.UploadResult{}, errors.New("Ingestor.Submit.FileStorage.SaveFile", i18n.ERROR_STORAGE_UPLOAD_FAILED,
			fmt.Errorf("%w: %w", errors.ErrStorageFailure, err))
	}

	knowledge := &types.Knowledge{
		BrainID:    req.BrainID,
		UserID:     req.UserID,
		FileName:   req.FileName,
		MimeType:   types.FileExtension(req.FileName),
		Source:     req.Integration,
		SourceLink: req.IntegrationLink,
		FileSize:   int64(len(req.File)),
		Status:     types.KNOWLEDGE_STATUS_UPLOADED,
	}
	if err := l.Knowledge.Create(ctx, knowledge); err != nil {
		l.markNotificationError(ctx, notificationID, UPLOAD_FAILED_DESCRIPTION)
		return types.UploadResult{}, errors.New("Ingestor.Submit.KnowledgeStore.Create", i18n.ERROR_INTERNAL, err)
	}

	job := types.ProcessingJob{
		BrainID:          req.BrainID,
		KnowledgeID:      knowledge.ID,
		FileName:         fullPath,
		FileOriginalName: req.FileName,
		Integration:      req.Integration,
		IntegrationLink:  req.IntegrationLink,
		NotificationID:   notificationID,
	}
	if err := l.Queue.EnqueueProcessFile(ctx, job); err != nil {
		// the knowledge row stays without a job until it is deleted
		l.markNotificationError(ctx, notificationID, UPLOAD_FAILED_DESCRIPTION)
		slog.Error("failed to enqueue process file job", slog.String("knowledge_id", knowledge.ID),
			slog.String("brain_id", req.BrainID), slog.String("error", err.Error()))
		return types.UploadResult{}, errors.New("Ingestor.Submit.JobQueue.Enqueue", i18n.ERROR_INTERNAL, err)
	}

	slog.Info("file upload accepted", slog.String("brain_id", req.BrainID), slog.String("knowledge_id", knowledge.ID),
		slog.String("file_name", req.FileName), slog.String("size", humanize.Bytes(uint64(len(req.File)))))

	return types.UploadResult{
		Message:        UPLOAD_STARTED_MESSAGE,
		KnowledgeID:    knowledge.ID,
		NotificationID: notificationID,
	}, nil
}

func (l *Ingestor) checkQuota(ctx context.Context, userID string, size int64) error {
	maxSize := l.DefaultMaxBrainSize
	settings, err := l.Quota.Get(ctx, userID)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return errors.New("Ingestor.UserSettingsStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if settings != nil && settings.MaxBrainSize > 0 {
		maxSize = settings.MaxBrainSize
	}

	if size > maxSize {
		return errors.New("Ingestor.checkQuota", i18n.ERROR_QUOTA_EXCEEDED,
			fmt.Errorf("%w: %d > %d bytes", errors.ErrQuotaExceeded, size, maxSize)).
			Code(http.StatusForbidden).
			WithData(map[string]interface{}{"max_size": humanize.Bytes(uint64(maxSize))})
	}
	return nil
}

// checkNotificationOwner 调用方传入的 notification 必须属于同一用户和 brain，否则按不存在处理
func (l *Ingestor) checkNotificationOwner(ctx context.Context, req types.UploadRequest) error {
	n, err := l.Notifications.Get(ctx, req.NotificationID)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return errors.New("Ingestor.NotificationStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if n == nil || n.UserID != req.UserID || n.BrainID != req.BrainID {
		return errors.New("Ingestor.checkNotificationOwner", i18n.ERROR_NOT_FOUND,
			fmt.Errorf("notification %s not found", req.NotificationID)).Code(http.StatusNotFound)
	}
	return nil
}

func (l *Ingestor) createNotification(ctx context.Context, req types.UploadRequest) string {
	n := &types.Notification{
		UserID:   req.UserID,
		BrainID:  req.BrainID,
		BulkID:   req.BulkID,
		Title:    req.FileName,
		Category: types.NOTIFICATION_CATEGORY_UPLOAD,
		Status:   types.NOTIFICATION_STATUS_INFO,
	}
	if err := l.Notifications.Create(ctx, n); err != nil {
		slog.Error("failed to create upload notification", slog.String("brain_id", req.BrainID),
			slog.String("file_name", req.FileName), slog.String("error", err.Error()))
		return ""
	}
	return n.ID
}

func (l *Ingestor) markNotificationError(ctx context.Context, id, description string) {
	if id == "" {
		return
	}
	if err := l.Notifications.Update(ctx, id, types.NotificationUpdate{
		Status:      types.NOTIFICATION_STATUS_ERROR,
		Description: description,
	}); err != nil {
		slog.Error("failed to update upload notification", slog.String("notification_id", id), slog.String("error", err.Error()))
	}
}

type UploadLogic struct {
	ctx      context.Context
	ingestor *Ingestor
	UserInfo
}

func NewUploadLogic(ctx context.Context, core *core.Core) *UploadLogic {
	return &UploadLogic{
		ctx:      ctx,
		ingestor: NewIngestorFromCore(core),
		UserInfo: SetupUserInfo(ctx),
	}
}

type UploadArgs struct {
	Integration     string
	IntegrationLink string
	NotificationID  string
	BulkID          string
}

func (l *UploadLogic) request(brainID, fileName string, file []byte, args UploadArgs) types.UploadRequest {
	return types.UploadRequest{
		File:            file,
		FileName:        fileName,
		BrainID:         brainID,
		UserID:          l.GetUserInfo().User,
		Integration:     args.Integration,
		IntegrationLink: args.IntegrationLink,
		NotificationID:  args.NotificationID,
		BulkID:          args.BulkID,
	}
}

// Admit checks the declared size of an upload before its content is read.
func (l *UploadLogic) Admit(brainID, fileName string, size int64, args UploadArgs) error {
	return l.ingestor.Admit(l.ctx, l.request(brainID, fileName, nil, args), size)
}

func (l *UploadLogic) Upload(brainID, fileName string, file []byte, args UploadArgs) (types.UploadResult, error) {
	return l.ingestor.Submit(l.ctx, l.request(brainID, fileName, file, args))
}
