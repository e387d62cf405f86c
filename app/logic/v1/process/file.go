package process

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/brainhub/brain-ingest/app/core"
	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
	"github.com/brainhub/brain-ingest/pkg/parser"
	"github.com/brainhub/brain-ingest/pkg/types"
	"github.com/brainhub/brain-ingest/pkg/utils"
)

var (
	// ErrJobInFlight is returned when the same knowledge is already being processed by this worker.
	ErrJobInFlight = stderrors.New("knowledge is already being processed")
	// ErrProcessingBusy is returned when the cluster wide processing limit is reached.
	ErrProcessingBusy = stderrors.New("too many files are being processed")
)

type FileDownloader interface {
	DownloadFile(ctx context.Context, fullPath string) (*types.GetObjectResult, error)
}

type ParserResolver interface {
	Resolve(ext string) (parser.Parser, error)
}

// DocumentVectorStore embeds and stores chunks. AddDocuments returns one id per chunk.
type DocumentVectorStore interface {
	AddDocuments(ctx context.Context, brainID, knowledgeID string, chunks []types.ParsedChunk) ([]string, error)
	CountByKnowledge(ctx context.Context, knowledgeID string) (int64, error)
}

type VectorLinkWriter interface {
	Create(ctx context.Context, vectorID, fileSha1 string) error
}

type BrainToucher interface {
	UpdateLastUpdated(ctx context.Context, id string) error
}

type KnowledgeStatusWriter interface {
	UpdateStatus(ctx context.Context, id string, status types.KnowledgeStatus) error
	SetFileSha1(ctx context.Context, id, fileSha1 string) error
}

type Transactor interface {
	Transaction(ctx context.Context, next func(ctx context.Context) error) error
}

// Limiter bounds how many jobs run at the same time. A permit belongs to a
// holder and expires on its own when the holder never releases it.
type Limiter interface {
	TryAcquire(ctx context.Context, holder string) (bool, error)
	Release(ctx context.Context, holder string) error
}

type FileProcessorDeps struct {
	Storage   FileDownloader
	Parsers   ParserResolver
	Audio     parser.Parser
	Vectors   DocumentVectorStore
	Links     VectorLinkWriter
	Brains    BrainToucher
	Knowledge KnowledgeStatusWriter
	Tx        Transactor
	Limiter   Limiter
	Metrics   *core.Metrics
}

// FileProcessor turns one stored file into vectors linked to its brain.
type FileProcessor struct {
	FileProcessorDeps
	inflight cmap.ConcurrentMap[string, time.Time]
}

func NewFileProcessor(deps FileProcessorDeps) *FileProcessor {
	return &FileProcessor{
		FileProcessorDeps: deps,
		inflight:          cmap.New[time.Time](),
	}
}

func NewFileProcessorFromCore(core *core.Core) *FileProcessor {
	deps := FileProcessorDeps{
		Storage:   core.FileStorage(),
		Parsers:   core.Parsers(),
		Audio:     core.AudioParser(),
		Vectors:   core.VectorStore(),
		Links:     core.Store().BrainVectorStore(),
		Brains:    core.Store().BrainStore(),
		Knowledge: core.Store().KnowledgeStore(),
		Tx:        core.Store(),
		Metrics:   core.Metrics(),
	}
	if sem := core.Semaphores().FileProcessing(); sem != nil {
		deps.Limiter = sem
	}
	return NewFileProcessor(deps)
}

func (p *FileProcessor) transition(report *types.JobReport, job types.ProcessingJob, state types.JobState) {
	report.State = state
	slog.Debug("process file job state changed",
		slog.String("knowledge_id", job.KnowledgeID),
		slog.String("brain_id", job.BrainID),
		slog.String("state", string(state)))
}

// Run executes the job. It never retries by itself; a returned error is left to
// the queue's redelivery policy.
func (p *FileProcessor) Run(ctx context.Context, job types.ProcessingJob) (types.JobReport, error) {
	report := types.JobReport{}
	p.transition(&report, job, types.JOB_STATE_RECEIVED)

	if !p.inflight.SetIfAbsent(job.KnowledgeID, time.Now()) {
		return report, errors.New("FileProcessor.Run.InFlight", i18n.ERROR_TOO_MANY_REQUESTS, ErrJobInFlight).Code(http.StatusTooManyRequests)
	}
	defer p.inflight.Remove(job.KnowledgeID)

	if p.Limiter != nil {
		holder := job.KnowledgeID + ":" + utils.GenRandomID()
		ok, err := p.Limiter.TryAcquire(ctx, holder)
		if err != nil {
			return report, errors.New("FileProcessor.Run.Limiter.TryAcquire", i18n.ERROR_INTERNAL, err)
		}
		if !ok {
			return report, errors.New("FileProcessor.Run.Limiter.TryAcquire", i18n.ERROR_TOO_MANY_REQUESTS, ErrProcessingBusy).Code(http.StatusTooManyRequests)
		}
		defer func() {
			if err := p.Limiter.Release(context.WithoutCancel(ctx), holder); err != nil {
				slog.Error("failed to release file processing permit", slog.String("error", err.Error()))
			}
		}()
	}

	start := time.Now()
	p.Metrics.JobRunning(1)
	defer p.Metrics.JobRunning(-1)
	p.setStatus(ctx, job.KnowledgeID, types.KNOWLEDGE_STATUS_PROCESSING)

	err := p.run(ctx, job, &report)

	path := types.FileExtension(jobFileName(job))
	if report.Audio {
		path = "audio"
	}
	switch {
	case err != nil:
		report.Reason = err.Error()
		p.transition(&report, job, types.JOB_STATE_FAILED)
		p.setStatus(ctx, job.KnowledgeID, types.KNOWLEDGE_STATUS_ERROR)
		p.Metrics.ObserveJob(path, core.METRIC_RESULT_FAILED, time.Since(start), 0)
		slog.Error("process file job failed",
			slog.String("knowledge_id", job.KnowledgeID),
			slog.String("brain_id", job.BrainID),
			slog.String("file_name", job.FileName),
			slog.String("error", err.Error()))
	case report.Skipped:
		p.setStatus(ctx, job.KnowledgeID, types.KNOWLEDGE_STATUS_UPLOADED)
		p.Metrics.ObserveJob(path, core.METRIC_RESULT_SKIPPED, time.Since(start), 0)
	default:
		p.setStatus(ctx, job.KnowledgeID, types.KNOWLEDGE_STATUS_UPLOADED)
		p.Metrics.ObserveJob(path, core.METRIC_RESULT_SUCCESS, time.Since(start), report.Chunks)
		slog.Info("process file job completed",
			slog.String("knowledge_id", job.KnowledgeID),
			slog.String("brain_id", job.BrainID),
			slog.Int("chunks", report.Chunks),
			slog.Int("links", report.Links))
	}

	return report, err
}

func jobFileName(job types.ProcessingJob) string {
	if job.FileOriginalName != "" {
		return job.FileOriginalName
	}
	return job.FileName
}

func (p *FileProcessor) run(ctx context.Context, job types.ProcessingJob, report *types.JobReport) error {
	// redelivered job, its vectors were written by a previous run
	count, err := p.Vectors.CountByKnowledge(ctx, job.KnowledgeID)
	if err != nil {
		return errors.New("FileProcessor.VectorStore.CountByKnowledge", i18n.ERROR_INTERNAL, err)
	}
	if count > 0 {
		report.Skipped = true
		p.transition(report, job, types.JOB_STATE_COMPLETED)
		slog.Warn("knowledge already has vectors, skip processing",
			slog.String("knowledge_id", job.KnowledgeID), slog.Int64("vectors", count))
		return nil
	}

	file, err := p.Storage.DownloadFile(ctx, job.FileName)
	if err != nil {
		return errors.New("FileProcessor.FileStorage.DownloadFile", i18n.ERROR_INTERNAL,
			fmt.Errorf("%w: %w", errors.ErrStorageFailure, err))
	}
	report.FileSha1 = utils.SHA1(file.File)
	if err := p.Knowledge.SetFileSha1(ctx, job.KnowledgeID, report.FileSha1); err != nil {
		slog.Error("failed to record knowledge file sha1", slog.String("knowledge_id", job.KnowledgeID), slog.String("error", err.Error()))
	}

	p.transition(report, job, types.JOB_STATE_DISPATCHING)
	src := parser.Source{
		Content:          file.File,
		FileName:         job.FileName,
		OriginalFileName: job.FileOriginalName,
		FileSha1:         report.FileSha1,
		BrainID:          job.BrainID,
		KnowledgeID:      job.KnowledgeID,
		Integration:      job.Integration,
		IntegrationLink:  job.IntegrationLink,
	}

	ext := types.FileExtension(jobFileName(job))
	var handler parser.Parser
	if parser.IsAudio(ext) {
		report.Audio = true
		handler = p.Audio
		p.transition(report, job, types.JOB_STATE_AUDIO_PARSING)
	} else {
		if handler, err = p.Parsers.Resolve(ext); err != nil {
			return errors.Trace("FileProcessor.Parsers.Resolve", err)
		}
		p.transition(report, job, types.JOB_STATE_TEXT_PARSING)
	}
	if handler == nil {
		return errors.New("FileProcessor.Dispatch", i18n.ERROR_UNSUPPORTED_FILE_TYPE,
			fmt.Errorf("%w: no audio parser configured", errors.ErrUnsupportedFileType)).Code(http.StatusUnprocessableEntity)
	}

	chunks, err := handler.Process(ctx, src)
	if err != nil {
		return errors.New("FileProcessor.Parser.Process", i18n.ERROR_PARSE_FAILED,
			fmt.Errorf("%w: %w", errors.ErrParseFailure, err)).Code(http.StatusUnprocessableEntity)
	}
	report.Chunks = len(chunks)

	if len(chunks) == 0 {
		slog.Info("no content extracted from file",
			slog.String("knowledge_id", job.KnowledgeID),
			slog.String("file_name", job.FileName),
			slog.Bool("audio", report.Audio))
		p.transition(report, job, types.JOB_STATE_COMPLETED)
		return nil
	}

	err = p.Tx.Transaction(ctx, func(ctx context.Context) error {
		p.transition(report, job, types.JOB_STATE_VECTOR_WRITING)
		ids, err := p.Vectors.AddDocuments(ctx, job.BrainID, job.KnowledgeID, chunks)
		if err != nil {
			return errors.New("FileProcessor.VectorStore.AddDocuments", i18n.ERROR_VECTOR_WRITE_FAILED,
				fmt.Errorf("%w: %w", errors.ErrVectorWriteFailure, err))
		}
		if len(ids) == 0 {
			return errors.New("FileProcessor.VectorStore.AddDocuments", i18n.ERROR_VECTOR_WRITE_FAILED,
				fmt.Errorf("%w: no ids returned for %d chunks", errors.ErrVectorWriteFailure, len(chunks)))
		}

		p.transition(report, job, types.JOB_STATE_LINKING)
		for _, id := range ids {
			if err := p.Links.Create(ctx, id, report.FileSha1); err != nil {
				return errors.New("FileProcessor.BrainVectorStore.Create", i18n.ERROR_VECTOR_WRITE_FAILED,
					fmt.Errorf("%w: %w", errors.ErrVectorWriteFailure, err))
			}
		}

		if err := p.Brains.UpdateLastUpdated(ctx, job.BrainID); err != nil {
			return errors.New("FileProcessor.BrainStore.UpdateLastUpdated", i18n.ERROR_INTERNAL, err)
		}

		report.VectorIDs = ids
		report.Links = len(ids)
		return nil
	})
	if err != nil {
		report.VectorIDs = nil
		report.Links = 0
		return err
	}

	p.transition(report, job, types.JOB_STATE_COMPLETED)
	return nil
}

func (p *FileProcessor) setStatus(ctx context.Context, knowledgeID string, status types.KnowledgeStatus) {
	if err := p.Knowledge.UpdateStatus(context.WithoutCancel(ctx), knowledgeID, status); err != nil {
		slog.Error("failed to update knowledge status",
			slog.String("knowledge_id", knowledgeID),
			slog.String("status", status.String()),
			slog.String("error", err.Error()))
	}
}
