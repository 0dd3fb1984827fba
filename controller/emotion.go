package controller

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DetectEmotion 识别上传图片中的主导表情
// 返回 dominant_emotion / confidence / all_scores，置信度低于 0.5 时带 low_confidence 标记
func (h *Handler) DetectEmotion(c *gin.Context) {
	data, ok := readImageFile(c, "image", true)
	if !ok {
		return
	}

	result, err := h.detector.DetectEmotion(c.Request.Context(), data)
	if err != nil {
		zap.L().Error("detect emotion failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Error processing image: " + err.Error()})
		return
	}
	c.JSON(200, result)
}
