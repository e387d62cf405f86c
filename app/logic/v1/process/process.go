package process

import (
	stderrors "errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/brainhub/brain-ingest/app/core"
	"github.com/brainhub/brain-ingest/pkg/queue"
	"github.com/brainhub/brain-ingest/pkg/register"
)

type Process struct {
	cron        *cron.Cron
	core        *core.Core
	asynqServer *asynq.Server
	asynqMux    *asynq.ServeMux
}

type ProcessKey struct{}

func NewProcess(core *core.Core) *Process {
	p := &Process{
		cron: cron.New(),
		core: core,
	}

	p.asynqServer = asynq.NewServer(core.AsynqRedisOpt(), asynq.Config{
		Concurrency:    core.Cfg().Ingest.WorkerConcurrency,
		StrictPriority: false,
		Queues: map[string]int{
			queue.IngestQueueName: 1,
		},
		Logger:    newAsynqLogger(),
		LogLevel:  asynq.WarnLevel,
		IsFailure: IsProcessingFailure,
	})

	p.asynqMux = asynq.NewServeMux()

	for _, h := range register.ResolveFuncHandlers[*Process](ProcessKey{}) {
		h(p)
	}

	return p
}

// IsProcessingFailure 准入拒绝（同 job 执行中 / 集群并发已满）不消耗重试次数
func IsProcessingFailure(err error) bool {
	return !stderrors.Is(err, ErrJobInFlight) && !stderrors.Is(err, ErrProcessingBusy)
}

func (p *Process) Cron() *cron.Cron {
	return p.cron
}

func (p *Process) Core() *core.Core {
	return p.core
}

func (p *Process) AsynqServerMux() *asynq.ServeMux {
	return p.asynqMux
}

func (p *Process) Start() {
	p.cron.Start()
	if err := p.asynqServer.Start(p.asynqMux); err != nil {
		panic(err)
	}
	slog.Info("process started", slog.Int("concurrency", p.core.Cfg().Ingest.WorkerConcurrency))
}

func (p *Process) Stop() {
	// 停止 cron 调度器
	if p.cron != nil {
		ctx := p.cron.Stop()
		<-ctx.Done()
	}

	// 等待正在执行的任务结束
	if p.asynqServer != nil {
		p.asynqServer.Shutdown()
	}
}
