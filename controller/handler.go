package controller

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"EmoFace/pkg/gemini"
	"EmoFace/pkg/horde"

	"github.com/gin-gonic/gin"
)

// MaxFileSize 上传图片大小上限
const MaxFileSize = 5 * 1024 * 1024 // 5MB

// EmotionDetector 情绪识别的最小接口（便于测试替换）
type EmotionDetector interface {
	DetectEmotion(ctx context.Context, imageBytes []byte) (*gemini.EmotionResult, error)
}

// ImageGenerator 图像生成的最小接口
type ImageGenerator interface {
	GenerateSync(ctx context.Context, req *horde.GenerationRequest, timeout time.Duration) ([]byte, error)
}

type Handler struct {
	detector       EmotionDetector
	generator      ImageGenerator
	genTimeout     time.Duration
	asyncEnabled   bool
	historyEnabled bool
}

func NewHandler(d EmotionDetector, g ImageGenerator, asyncEnabled, historyEnabled bool) *Handler {
	return &Handler{
		detector:       d,
		generator:      g,
		genTimeout:     300 * time.Second,
		asyncEnabled:   asyncEnabled,
		historyEnabled: historyEnabled,
	}
}

// Health 健康检查
func Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok", "service": "emoface"})
}

// readImageFile 读取 multipart 图片字段并校验类型和大小
// 校验失败时已写好响应，返回 ok=false
func readImageFile(c *gin.Context, field string, required bool) (data []byte, ok bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		if !required {
			return nil, true
		}
		c.JSON(400, gin.H{"error": "image file is required"})
		return nil, false
	}
	if ct := fh.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		c.JSON(400, gin.H{"error": "File must be an image"})
		return nil, false
	}
	if fh.Size > MaxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File size exceeds 5MB limit"})
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(500, gin.H{"error": "failed to read image"})
		return nil, false
	}
	defer f.Close()
	data, err = io.ReadAll(f)
	if err != nil {
		c.JSON(500, gin.H{"error": "failed to read image"})
		return nil, false
	}
	return data, true
}
