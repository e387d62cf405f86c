package core

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedSemaphore 分布式信号量，基于 Redis ZSET 实现
// 每个持有者一个成员，score 为过期时间(ms)，持有者崩溃后许可在 timeout 后自动回收
type DistributedSemaphore struct {
	redis      redis.UniversalClient
	key        string
	maxPermits int
	timeout    time.Duration
}

// NewDistributedSemaphore 创建分布式信号量
func NewDistributedSemaphore(redis redis.UniversalClient, key string, maxPermits int, timeout time.Duration) *DistributedSemaphore {
	return &DistributedSemaphore{
		redis:      redis,
		key:        key,
		maxPermits: maxPermits,
		timeout:    timeout,
	}
}

// 以 redis 服务器时间为准，避免各 worker 时钟偏差
var acquireScript = redis.NewScript(`
	local key = KEYS[1]
	local max_permits = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])
	local holder = ARGV[3]

	local t = redis.call('TIME')
	local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now)

	if redis.call('ZSCORE', key, holder) or redis.call('ZCARD', key) < max_permits then
		redis.call('ZADD', key, now + ttl, holder)
		redis.call('PEXPIRE', key, ttl)
		return 1
	else
		return 0
	end
`)

// TryAcquire 尝试为 holder 获取一个许可，同一 holder 重复获取只续期
func (s *DistributedSemaphore) TryAcquire(ctx context.Context, holder string) (bool, error) {
	result, err := acquireScript.Run(ctx, s.redis, []string{s.key}, s.maxPermits, s.timeout.Milliseconds(), holder).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// Release 释放 holder 的许可，未持有时为空操作
func (s *DistributedSemaphore) Release(ctx context.Context, holder string) error {
	return s.redis.ZRem(ctx, s.key, holder).Err()
}

// GetCurrent 获取当前未过期的许可数
func (s *DistributedSemaphore) GetCurrent(ctx context.Context) int {
	result, err := s.redis.ZCount(ctx, s.key, strconv.FormatInt(time.Now().UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0
	}
	return int(result)
}

// SemaphoreManager 信号量管理器，统一管理所有分布式信号量
type SemaphoreManager struct {
	client    redis.UniversalClient
	keyPrefix string
	cfg       IngestConfig

	processing     *DistributedSemaphore
	processingOnce sync.Once
}

func NewSemaphoreManager(client redis.UniversalClient, keyPrefix string, cfg IngestConfig) *SemaphoreManager {
	if keyPrefix == "" {
		keyPrefix = "brain-ingest"
	}
	return &SemaphoreManager{
		client:    client,
		keyPrefix: keyPrefix,
		cfg:       cfg,
	}
}

// FileProcessing limits how many files are parsed at the same time across all
// workers. It returns nil when no limit is configured.
func (m *SemaphoreManager) FileProcessing() *DistributedSemaphore {
	if m == nil || m.client == nil || m.cfg.MaxConcurrentJobs <= 0 {
		return nil
	}
	m.processingOnce.Do(func() {
		m.processing = NewDistributedSemaphore(
			m.client,
			fmt.Sprintf("%s:semaphore:file_processing", m.keyPrefix),
			m.cfg.MaxConcurrentJobs,
			time.Minute*30, // 与任务超时一致
		)
	})
	return m.processing
}
