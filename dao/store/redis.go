package store

import (
	"strconv"
	"time"

	"EmoFace/task"

	"github.com/go-redis/redis"
	"go.uber.org/zap"
)

var Client *redis.Client

const taskTTL = 24 * time.Hour

func Init(addr string) (err error) {
	Client = redis.NewClient(&redis.Options{
		Addr: addr,
	})

	_, err = Client.Ping().Result()
	if err != nil {
		return err
	}
	return nil
}

// taskKey user:<uid>:task:<tid>
func taskKey(userID uint64, taskID string) string {
	return "user:" + strconv.FormatUint(userID, 10) + ":task:" + taskID
}

// SetGenerationTask 把任务整体写入 redis hash
func SetGenerationTask(t task.GenerationTask) error {
	fields := map[string]interface{}{
		"kind":           t.Kind,
		"target_emotion": t.TargetEmotion,
		"style":          t.Style,
		"prompt":         t.Prompt,
		"status":         t.Status,
		"result":         t.Result,
		"error":          t.Error,
		"priority":       t.Priority,
		"created_at":     t.CreatedAt,
		"updated_at":     t.UpdatedAt,
	}
	// HMSet 和 Expire 放在同一个 pipeline 里
	pipe := Client.Pipeline()
	pipe.HMSet(taskKey(t.UserID, t.TaskID), fields)
	pipe.Expire(taskKey(t.UserID, t.TaskID), taskTTL)
	_, err := pipe.Exec()
	if err != nil {
		zap.L().Error("failed to store generation task",
			zap.String("task_id", t.TaskID), zap.Error(err))
		return err
	}
	return nil
}

// UpdateTaskStatus 只更新状态相关字段
func UpdateTaskStatus(userID uint64, taskID, status, result, errMsg string) error {
	fields := map[string]interface{}{
		"status":     status,
		"result":     result,
		"error":      errMsg,
		"updated_at": time.Now().Unix(),
	}
	err := Client.HMSet(taskKey(userID, taskID), fields).Err()
	if err != nil {
		zap.L().Error("failed to update generation task",
			zap.String("task_id", taskID), zap.Error(err))
	}
	return err
}

// SetTaskQueuePosition 记录上游排队位置，仅用于观测
func SetTaskQueuePosition(userID uint64, taskID string, position int) {
	_ = Client.HSet(taskKey(userID, taskID), "queue_position", position).Err()
}

// GetGenerationTask 读取任务当前状态
func GetGenerationTask(userID uint64, taskID string) (*task.TaskResponse, error) {
	hash, err := Client.HGetAll(taskKey(userID, taskID)).Result()
	if err != nil {
		return nil, err
	}
	if len(hash) == 0 {
		return nil, redis.Nil
	}
	resp := &task.TaskResponse{
		TaskID: taskID,
		Status: hash["status"],
		Result: hash["result"],
		Error:  hash["error"],
	}
	if v, err := strconv.ParseInt(hash["updated_at"], 10, 64); err == nil {
		resp.UpdatedAt = v
	}
	return resp, nil
}
