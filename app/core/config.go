package core

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/brainhub/brain-ingest/app/core/srv"
	"github.com/brainhub/brain-ingest/pkg/types"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}
	conf.Ingest.applyDefaults()

	return *conf
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	c.Ingest.applyDefaults()
	return c
}

type CoreConfig struct {
	Addr          string              `toml:"addr"`
	Log           Log                 `toml:"log"`
	Postgres      PGConfig            `toml:"postgres"`
	Redis         RedisConfig         `toml:"redis"`
	ObjectStorage ObjectStorageDriver `toml:"object_storage"`

	AI srv.AIConfig `toml:"ai"`

	Ingest IngestConfig `toml:"ingest"`

	Security Security `toml:"security"`

	RateLimit RateLimit `toml:"rate_limit"`
}

const (
	STORAGE_DRIVER_S3    = "s3"
	STORAGE_DRIVER_MINIO = "minio"
)

type ObjectStorageDriver struct {
	Driver string       `toml:"driver"`
	S3     *S3Config    `toml:"s3"`
	Minio  *MinioConfig `toml:"minio"`
}

type S3Config struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
}

type MinioConfig struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

func (o *ObjectStorageDriver) FromENV() {
	o.Driver = os.Getenv("INGEST_STORAGE_DRIVER")
	cfg := S3Config{
		Bucket:       os.Getenv("INGEST_STORAGE_BUCKET"),
		Region:       os.Getenv("INGEST_STORAGE_REGION"),
		Endpoint:     os.Getenv("INGEST_STORAGE_ENDPOINT"),
		AccessKey:    os.Getenv("INGEST_STORAGE_ACCESS_KEY"),
		SecretKey:    os.Getenv("INGEST_STORAGE_SECRET_KEY"),
		UsePathStyle: envBool("INGEST_STORAGE_PATH_STYLE"),
	}
	if o.Driver == STORAGE_DRIVER_MINIO {
		o.Minio = &MinioConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    envBool("INGEST_STORAGE_USE_SSL"),
		}
		return
	}
	o.S3 = &cfg
}

// IngestConfig 上传与解析流程的参数
type IngestConfig struct {
	DefaultMaxBrainSize       int64 `toml:"default_max_brain_size"`      // 未配置 user_settings 时的默认空间上限(bytes)
	ChunkSize                 int   `toml:"chunk_size"`                  // 切片长度
	ChunkOverlap              int   `toml:"chunk_overlap"`               // 切片重叠长度
	EmbeddingBatchSize        int   `toml:"embedding_batch_size"`        // 单次 embedding 请求的文档数
	EmbeddingPoolSize         int   `toml:"embedding_pool_size"`         // 单个任务内 embedding 的并发数
	WorkerConcurrency         int   `toml:"worker_concurrency"`          // asynq worker 并发数
	MaxRetry                  int   `toml:"max_retry"`                   // 任务最大重试次数
	MaxConcurrentJobs         int   `toml:"max_concurrent_jobs"`         // 集群内同时解析的文件数, 0 为不限制
	NotificationRetentionDays int   `toml:"notification_retention_days"` // 已完成通知的保留天数
}

func (c *IngestConfig) applyDefaults() {
	if c.DefaultMaxBrainSize <= 0 {
		c.DefaultMaxBrainSize = types.DEFAULT_MAX_BRAIN_SIZE
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 500
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = 100
	}
	if c.EmbeddingBatchSize <= 0 {
		c.EmbeddingBatchSize = 32
	}
	if c.EmbeddingPoolSize <= 0 {
		c.EmbeddingPoolSize = 4
	}
	if c.WorkerConcurrency <= 0 {
		c.WorkerConcurrency = 5
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = 3
	}
	if c.NotificationRetentionDays <= 0 {
		c.NotificationRetentionDays = 7
	}
}

func (c *IngestConfig) FromENV() {
	c.DefaultMaxBrainSize = int64(envInt("INGEST_DEFAULT_MAX_BRAIN_SIZE"))
	c.ChunkSize = envInt("INGEST_CHUNK_SIZE")
	c.ChunkOverlap = envInt("INGEST_CHUNK_OVERLAP")
	c.WorkerConcurrency = envInt("INGEST_WORKER_CONCURRENCY")
	c.MaxRetry = envInt("INGEST_MAX_RETRY")
	c.MaxConcurrentJobs = envInt("INGEST_MAX_CONCURRENT_JOBS")
}

type Security struct {
	JWTPublicKey string `toml:"jwt_public_key"`
}

type RateLimit struct {
	UploadPerMinute int `toml:"upload_per_minute"`
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("INGEST_API_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.ObjectStorage.FromENV()
	c.Ingest.FromENV()
	c.AI = srv.AIConfig{
		BaseURL:            os.Getenv("INGEST_AI_BASE_URL"),
		Token:              os.Getenv("INGEST_AI_TOKEN"),
		EmbeddingModel:     os.Getenv("INGEST_AI_EMBEDDING_MODEL"),
		EmbeddingDimension: envInt("INGEST_AI_EMBEDDING_DIMENSION"),
		TranscriptionModel: os.Getenv("INGEST_AI_TRANSCRIPTION_MODEL"),
	}
	c.Security.JWTPublicKey = os.Getenv("INGEST_JWT_PUBLIC_KEY")
	c.RateLimit.UploadPerMinute = envInt("INGEST_UPLOAD_PER_MINUTE")
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("INGEST_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	// 单机模式配置
	Addr     string `toml:"addr"`     // Redis地址，格式: host:port
	Password string `toml:"password"` // Redis密码
	DB       int    `toml:"db"`       // Redis数据库索引 (0-15)

	// 集群模式配置
	Cluster      bool     `toml:"cluster"`       // 是否启用集群模式
	ClusterAddrs []string `toml:"cluster_addrs"` // 集群节点地址列表

	PoolSize int `toml:"pool_size"` // 连接池大小，默认10

	KeyPrefix string `toml:"key_prefix"` // Redis键前缀，用于隔离不同环境/应用
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("INGEST_REDIS_ADDR")
	r.Password = os.Getenv("INGEST_REDIS_PASSWORD")
	r.DB = envInt("INGEST_REDIS_DB")
	if addrs := os.Getenv("INGEST_REDIS_CLUSTER_ADDRS"); addrs != "" {
		r.Cluster = true
		r.ClusterAddrs = strings.Split(addrs, ",")
	}
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("INGEST_API_LOG_LEVEL")
	l.Path = os.Getenv("INGEST_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
