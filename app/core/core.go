package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/brainhub/brain-ingest/app/core/srv"
	"github.com/brainhub/brain-ingest/app/store/sqlstore"
	"github.com/brainhub/brain-ingest/pkg/object-storage/minio"
	"github.com/brainhub/brain-ingest/pkg/object-storage/s3"
	"github.com/brainhub/brain-ingest/pkg/parser"
	"github.com/brainhub/brain-ingest/pkg/queue"
	"github.com/brainhub/brain-ingest/pkg/types"
	"github.com/brainhub/brain-ingest/pkg/vectorstore"
)

// FileStorage interface defines methods for file operations.
type FileStorage interface {
	// SaveFile returns types.ErrObjectAlreadyExists when fullPath is taken.
	SaveFile(ctx context.Context, fullPath string, content []byte) error
	DownloadFile(ctx context.Context, fullPath string) (*types.GetObjectResult, error)
	DeleteFile(ctx context.Context, fullPath string) error
	ListFiles(ctx context.Context, prefix string) ([]types.ObjectInfo, error)
}

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores     func() *sqlstore.Provider
	httpEngine *gin.Engine

	redis       redis.UniversalClient
	asynqClient *asynq.Client
	ingestQueue *queue.IngestQueue
	fileStorage FileStorage
	parsers     *parser.Registry
	audioParser *parser.AudioParser
	vectorStore *vectorstore.PGVectorStore
	semaphores  *SemaphoreManager

	metrics *Metrics
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28,   //days
				Compress:   true, // disabled by default
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	core := &Core{
		cfg:        cfg,
		metrics:    NewMetrics("brain", "ingest"),
		httpEngine: gin.New(),
	}

	// setup store
	setupSqlStore(core)

	core.srv = srv.SetupSrvs(srv.ApplyAI(cfg.AI))

	setupRedis(core)

	storage, err := NewFileStorage(cfg.ObjectStorage)
	if err != nil {
		panic(err)
	}
	core.fileStorage = storage

	parserOpts := parser.Options{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
	}
	core.parsers = parser.NewDefaultRegistry(parserOpts)
	core.audioParser = parser.NewAudioParser(core.srv.AI(), parserOpts)

	core.vectorStore, err = vectorstore.NewPGVectorStore(core.srv.AI(), core.Store().VectorStore(),
		vectorstore.WithBatchSize(cfg.Ingest.EmbeddingBatchSize),
		vectorstore.WithPoolSize(cfg.Ingest.EmbeddingPoolSize))
	if err != nil {
		panic(err)
	}

	return core
}

func setupSqlStore(core *Core) {
	core.stores = sqlstore.MustSetup(core.cfg.Postgres)
	// 执行数据库表初始化
	if err := core.stores().Install(); err != nil {
		panic(err)
	}
	slog.Info("setupSqlStore done")
}

func setupRedis(core *Core) {
	cfg := core.cfg.Redis
	opts := &redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	if cfg.Cluster {
		opts.Addrs = cfg.ClusterAddrs
		opts.DB = 0
	}
	core.redis = redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err := core.redis.Ping(ctx).Err(); err != nil {
		panic(fmt.Errorf("failed to connect redis: %w", err))
	}

	core.asynqClient = asynq.NewClientFromRedisClient(core.redis)
	core.ingestQueue = queue.NewIngestQueue(core.asynqClient, core.cfg.Ingest.MaxRetry, queue.DefaultProcessFileTaskTimeout)
	core.semaphores = NewSemaphoreManager(core.redis, cfg.KeyPrefix, core.cfg.Ingest)
}

// NewFileStorage builds the object storage client selected by cfg.Driver.
func NewFileStorage(cfg ObjectStorageDriver) (FileStorage, error) {
	switch cfg.Driver {
	case STORAGE_DRIVER_S3, "":
		if cfg.S3 == nil {
			return nil, fmt.Errorf("object_storage.s3 is not configured")
		}
		return s3.NewS3Client(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKey, cfg.S3.SecretKey,
			s3.WithPathStyle(cfg.S3.UsePathStyle)), nil
	case STORAGE_DRIVER_MINIO:
		if cfg.Minio == nil {
			return nil, fmt.Errorf("object_storage.minio is not configured")
		}
		return minio.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.Region, cfg.Minio.Bucket,
			cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	default:
		return nil, fmt.Errorf("unknown object storage driver %q", cfg.Driver)
	}
}

// AsynqRedisOpt returns the connection options for asynq servers.
func (s *Core) AsynqRedisOpt() asynq.RedisConnOpt {
	cfg := s.cfg.Redis
	if cfg.Cluster {
		return asynq.RedisClusterClientOpt{
			Addrs:    cfg.ClusterAddrs,
			Password: cfg.Password,
		}
	}
	return asynq.RedisClientOpt{
		Network:  "tcp",
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Store() *sqlstore.Provider {
	return s.stores()
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

func (s *Core) Redis() redis.UniversalClient {
	return s.redis
}

func (s *Core) FileStorage() FileStorage {
	return s.fileStorage
}

func (s *Core) IngestQueue() *queue.IngestQueue {
	return s.ingestQueue
}

func (s *Core) Parsers() *parser.Registry {
	return s.parsers
}

func (s *Core) AudioParser() *parser.AudioParser {
	return s.audioParser
}

func (s *Core) VectorStore() *vectorstore.PGVectorStore {
	return s.vectorStore
}

func (s *Core) Semaphores() *SemaphoreManager {
	return s.semaphores
}

func (s *Core) Shutdown() {
	if s.ingestQueue != nil {
		s.ingestQueue.Shutdown()
	}
	if s.vectorStore != nil {
		s.vectorStore.Release()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("failed to close redis client", slog.String("error", err.Error()))
		}
	}
}
