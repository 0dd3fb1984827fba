// task/task.go
package task

// 状态常量
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// 任务类型
const (
	KindEdit     = "edit"     // img2img 修改已有人像的表情
	KindGenerate = "generate" // 文生图或带参考图生成
)

// GenerationRequest 表示用户提交的异步生成请求部分
type GenerationRequest struct {
	UserID        uint64  `json:"user_id"`
	TargetEmotion string  `json:"target_emotion" binding:"required"`
	Style         string  `json:"style,omitempty"`
	Intensity     float64 `json:"intensity,omitempty"`
	SeedImage     string  `json:"seed_image,omitempty"` // base64，无 data: 前缀
	Priority      int     `json:"priority,omitempty"`
	CreatedAt     int64   `json:"created_at,omitempty"`
}

// GenerationTask 是内部持久化/传递的任务结构，包含请求和元数据
type GenerationTask struct {
	GenerationRequest
	TaskID    string `json:"task_id"`
	Kind      string `json:"kind"`
	Prompt    string `json:"prompt"`
	Status    string `json:"status"`
	Result    string `json:"result,omitempty"` // 生成图片的相对路径，如 public/pic/<task_id>.png
	Error     string `json:"error,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// TaskResponse 是返回给用户的响应部分
type TaskResponse struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"` // pending/processing/completed/failed
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}
