package controller

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"EmoFace/dao/store"
	"EmoFace/logic"
	"EmoFace/pkg/queue"
	"EmoFace/task"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type asyncGenerateForm struct {
	UserID        uint64   `form:"user_id"`
	TargetEmotion string   `form:"target_emotion" binding:"required"`
	Style         string   `form:"style"`
	Intensity     *float64 `form:"intensity"`
	Kind          string   `form:"kind" binding:"omitempty,oneof=edit generate"`
	Priority      int      `form:"priority" binding:"omitempty,min=0,max=10"`
}

// SubmitGenerationTask 提交异步生成任务，立即返回 task_id
// 任务进入 RabbitMQ，由 worker 执行 提交→轮询→取回，结果落盘后通过 SSE 通知
func (h *Handler) SubmitGenerationTask(c *gin.Context) {
	if !h.asyncEnabled {
		c.JSON(503, gin.H{"error": "async generation is disabled"})
		return
	}

	var form asyncGenerateForm
	if err := c.ShouldBind(&form); err != nil {
		zap.L().Error("submit task with invalid param", zap.Error(err))
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			c.JSON(400, gin.H{"error": errs.Error()})
			return
		}
		c.JSON(400, gin.H{"error": "invalid request"})
		return
	}
	emotion := strings.ToLower(form.TargetEmotion)
	if !logic.SupportedEmotion(emotion) {
		c.JSON(400, gin.H{"error": fmt.Sprintf("Unsupported emotion. Use: %v", logic.SupportedEmotions())})
		return
	}
	kind := form.Kind
	if kind == "" {
		kind = task.KindGenerate
	}
	intensity := 0.4
	if form.Intensity != nil {
		intensity = *form.Intensity
	}
	if intensity < 0.0 || intensity > 1.0 {
		c.JSON(400, gin.H{"error": "Intensity must be between 0.0 and 1.0"})
		return
	}
	style := strings.ToLower(form.Style)
	if style == "" {
		style = "photorealistic"
	}

	// 参考图：edit 必填，generate 可选
	data, ok := readImageFile(c, "image", kind == task.KindEdit)
	if !ok {
		return
	}
	var seed string
	if len(data) > 0 {
		seed = base64.StdEncoding.EncodeToString(data)
	}

	var prompt string
	if kind == task.KindEdit {
		prompt, _ = logic.BuildEditPrompt(emotion, intensity)
	} else {
		prompt, _ = logic.BuildGeneratePrompt(emotion, style, seed != "")
	}

	now := time.Now().Unix()
	newTask := task.GenerationTask{
		GenerationRequest: task.GenerationRequest{
			UserID:        form.UserID,
			TargetEmotion: emotion,
			Style:         style,
			Intensity:     intensity,
			SeedImage:     seed,
			Priority:      form.Priority,
			CreatedAt:     now,
		},
		TaskID:    uuid.New().String(),
		Kind:      kind,
		Prompt:    prompt,
		Status:    task.StatusPending,
		UpdatedAt: now,
	}

	// 保存初始状态
	if err := store.SetGenerationTask(newTask); err != nil {
		c.JSON(500, gin.H{"error": "storage error"})
		return
	}

	// 发送到消息队列
	q, err := queue.GetGenerationQueue()
	if err != nil {
		c.JSON(500, gin.H{"error": "failed to get message queue"})
		return
	}
	b, err := json.Marshal(newTask)
	if err != nil {
		c.JSON(500, gin.H{"error": "failed to serialize task"})
		return
	}
	if err := q.PublishGenerationTask(b, newTask.Priority); err != nil {
		c.JSON(500, gin.H{"error": "failed to publish task"})
		return
	}

	c.JSON(202, gin.H{"task_id": newTask.TaskID, "status": "submitted"})
}

// GetTaskResult 查询异步任务状态，完成后 result 是生成图片的相对路径
func (h *Handler) GetTaskResult(c *gin.Context) {
	if !h.asyncEnabled {
		c.JSON(503, gin.H{"error": "async generation is disabled"})
		return
	}
	taskID := c.Param("task_id")
	userID, _ := strconv.ParseUint(c.Query("userid"), 10, 64)

	t, err := store.GetGenerationTask(userID, taskID)
	if err != nil {
		c.JSON(404, gin.H{"error": "task not found"})
		return
	}
	response := gin.H{
		"task_id":    t.TaskID,
		"status":     t.Status,
		"updated_at": t.UpdatedAt,
	}
	if t.Status == task.StatusCompleted {
		response["result"] = t.Result
	}
	if t.Status == task.StatusFailed {
		response["error"] = t.Error
	}
	c.JSON(200, response)
}

// GetTaskHistory 游标分页查询用户的任务历史
func (h *Handler) GetTaskHistory(c *gin.Context) {
	if !h.asyncEnabled {
		c.JSON(503, gin.H{"error": "async generation is disabled"})
		return
	}
	userID, _ := strconv.ParseUint(c.Query("userid"), 10, 64)
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	page, err := store.GetUserTaskHistory(userID, c.Query("cursor"), pageSize)
	if err != nil {
		zap.L().Error("failed to load task history", zap.Error(err))
		c.JSON(500, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(200, page)
}
