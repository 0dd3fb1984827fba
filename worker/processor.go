package worker

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"EmoFace/dao/mysql"
	"EmoFace/dao/store"
	"EmoFace/logic"
	"EmoFace/pkg/horde"
	"EmoFace/pkg/queue"
	"EmoFace/pkg/retry"
	"EmoFace/pkg/sse"
	"EmoFace/task"
	"EmoFace/util"

	"go.uber.org/zap"
)

// Generator 生成流程依赖的上游客户端最小接口（便于测试替换）
type Generator interface {
	Submit(ctx context.Context, req *horde.GenerationRequest) (string, *horde.SubmitResponse, error)
	Poll(ctx context.Context, jobID string, interval, timeout time.Duration, progress func(*horde.StatusResponse)) ([]string, *horde.StatusResponse, error)
	Materialize(ctx context.Context, ref string) ([]byte, error)
}

// TaskStore 任务状态持久化的最小接口
type TaskStore interface {
	SetGenerationTask(t task.GenerationTask) error
	UpdateTaskStatus(userID uint64, taskID, status, result, errMsg string) error
	SetTaskQueuePosition(userID uint64, taskID string, position int)
}

// redisTaskStore 默认实现，落到 dao/store
type redisTaskStore struct{}

func (redisTaskStore) SetGenerationTask(t task.GenerationTask) error {
	return store.SetGenerationTask(t)
}
func (redisTaskStore) UpdateTaskStatus(userID uint64, taskID, status, result, errMsg string) error {
	return store.UpdateTaskStatus(userID, taskID, status, result, errMsg)
}
func (redisTaskStore) SetTaskQueuePosition(userID uint64, taskID string, position int) {
	store.SetTaskQueuePosition(userID, taskID, position)
}

// Processor 消费异步生成任务，走完 提交→轮询→取回→落盘 的完整流程
type Processor struct {
	horde          Generator
	queue          queue.GenerationQueue
	store          TaskStore
	pollTimeout    time.Duration
	historyEnabled bool // mysql 历史记录是否可用
}

func NewProcessor(g Generator, q queue.GenerationQueue, s TaskStore, pollTimeout time.Duration, historyEnabled bool) *Processor {
	if s == nil {
		s = redisTaskStore{}
	}
	if pollTimeout <= 0 {
		pollTimeout = 300 * time.Second
	}
	return &Processor{horde: g, queue: q, store: s, pollTimeout: pollTimeout, historyEnabled: historyEnabled}
}

// Start 阻塞消费队列，应在单独的 goroutine 中运行
func (p *Processor) Start() {
	if err := p.queue.Consume(p.processTask); err != nil {
		log.Fatalf("Failed to consume tasks: %v", err)
	}
}

func (p *Processor) processTask(t task.GenerationTask, redelivered bool) error {
	ctx := context.Background()

	// 更新状态为处理中
	t.Status = task.StatusProcessing
	t.UpdatedAt = time.Now().Unix()
	if err := p.store.SetGenerationTask(t); err != nil {
		// 存储失败视为临时问题，交给队列重入队
		return err
	}

	// 参数由任务元数据重建，和同步路径用同一套规则
	var params horde.Params
	if t.Kind == task.KindEdit {
		_, params = logic.BuildEditPrompt(t.TargetEmotion, t.Intensity)
	} else {
		_, params = logic.BuildGeneratePrompt(t.TargetEmotion, t.Style, t.SeedImage != "")
	}
	req := &horde.GenerationRequest{
		Prompt:      t.Prompt,
		Model:       horde.DefaultModel,
		SourceImage: t.SeedImage,
		Params:      params,
	}

	jobID, _, err := p.horde.Submit(ctx, req)
	if err != nil {
		return p.fail(t, err, redelivered)
	}
	images, _, err := p.horde.Poll(ctx, jobID, 0, p.pollTimeout, func(st *horde.StatusResponse) {
		if st.QueuePosition > 0 {
			p.store.SetTaskQueuePosition(t.UserID, t.TaskID, st.QueuePosition)
		}
	})
	if err != nil {
		return p.fail(t, err, redelivered)
	}
	data, err := p.horde.Materialize(ctx, images[0])
	if err != nil {
		return p.fail(t, err, redelivered)
	}

	path, err := util.SaveImage(data, t.TaskID)
	if err != nil {
		zap.L().Error("failed to save generated image",
			zap.String("task_id", t.TaskID), zap.Error(err))
		return p.fail(t, err, redelivered)
	}

	t.Status = task.StatusCompleted
	t.Result = path
	if err := p.store.UpdateTaskStatus(t.UserID, t.TaskID, t.Status, t.Result, ""); err != nil {
		return err
	}
	p.record(t)
	p.notify(t)
	zap.L().Info("generation task completed",
		zap.String("task_id", t.TaskID), zap.String("result", path))
	return nil
}

// fail 只在投递终结时才落失败终态并通知；
// 临时错误的首次投递保持 processing，由队列重入队后再试一次
func (p *Processor) fail(t task.GenerationTask, cause error, redelivered bool) error {
	permanent := isPermanent(cause)
	if !permanent && !redelivered {
		zap.L().Warn("generation task failed, requeueing once",
			zap.String("task_id", t.TaskID), zap.Error(cause))
		return cause
	}

	t.Status = task.StatusFailed
	t.Error = cause.Error()
	_ = p.store.UpdateTaskStatus(t.UserID, t.TaskID, t.Status, "", t.Error)
	p.record(t)
	p.notify(t)
	if permanent {
		return retry.Permanent(cause)
	}
	return cause
}

// isPermanent 任务级终态错误重试也不会成功，直接进死信队列
func isPermanent(err error) bool {
	var (
		impossible *horde.JobImpossibleError
		empty      *horde.EmptyResultError
		decode     *horde.DecodeError
		submit     *horde.SubmissionError
	)
	return errors.As(err, &impossible) ||
		errors.As(err, &empty) ||
		errors.As(err, &decode) ||
		errors.As(err, &submit)
}

func (p *Processor) record(t task.GenerationTask) {
	if !p.historyEnabled {
		return
	}
	err := mysql.InsertGeneration(&mysql.GenerationRecord{
		TaskID:        t.TaskID,
		UserID:        t.UserID,
		Kind:          t.Kind,
		TargetEmotion: t.TargetEmotion,
		Style:         t.Style,
		Prompt:        t.Prompt,
		Status:        t.Status,
		ResultPath:    t.Result,
	})
	if err != nil {
		zap.L().Warn("failed to record generation history",
			zap.String("task_id", t.TaskID), zap.Error(err))
	}
}

func (p *Processor) notify(t task.GenerationTask) {
	hub := sse.GetHub()
	if hub == nil {
		return
	}
	hub.PublishTaskEvent(strconv.FormatUint(t.UserID, 10), sse.TaskEvent{
		UserID: t.UserID,
		TaskID: t.TaskID,
		Status: t.Status,
		Result: t.Result,
		Error:  t.Error,
	})
}
