package controller

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"EmoFace/logic"
	"EmoFace/pkg/horde"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type editForm struct {
	TargetEmotion string   `form:"target_emotion" binding:"required"`
	Intensity     *float64 `form:"intensity"`
}

// EditImage img2img：保持同一人，把表情改成目标情绪
// intensity 控制改动幅度，映射到 denoising_strength
func (h *Handler) EditImage(c *gin.Context) {
	var form editForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(400, gin.H{"error": "invalid request"})
		return
	}
	intensity := 0.4
	if form.Intensity != nil {
		intensity = *form.Intensity
	}
	if intensity < 0.0 || intensity > 1.0 {
		c.JSON(400, gin.H{"error": "Intensity must be between 0.0 and 1.0"})
		return
	}
	emotion := strings.ToLower(form.TargetEmotion)
	if !logic.SupportedEmotion(emotion) {
		c.JSON(400, gin.H{"error": fmt.Sprintf("Unsupported emotion. Use: %v", logic.SupportedEmotions())})
		return
	}

	data, ok := readImageFile(c, "image", true)
	if !ok {
		return
	}

	prompt, params := logic.BuildEditPrompt(emotion, intensity)
	zap.L().Info("submitting edit job", zap.String("prompt", prompt))

	img, err := h.generator.GenerateSync(c.Request.Context(), &horde.GenerationRequest{
		Prompt:      prompt,
		Model:       horde.DefaultModel,
		SourceImage: base64.StdEncoding.EncodeToString(data),
		Params:      params,
	}, h.genTimeout)
	if err != nil {
		zap.L().Error("edit image failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Error editing image: " + err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=edited_image.png")
	c.Data(200, "image/png", img)
}

type generateForm struct {
	TargetEmotion string `form:"target_emotion" binding:"required"`
	Style         string `form:"style"`
}

// GenerateImage 生成目标情绪的人像；带参考图时走 img2img 保持同一人
func (h *Handler) GenerateImage(c *gin.Context) {
	var form generateForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(400, gin.H{"error": "invalid request"})
		return
	}
	emotion := strings.ToLower(form.TargetEmotion)
	if !logic.SupportedEmotion(emotion) {
		c.JSON(400, gin.H{"error": fmt.Sprintf("Unsupported emotion. Use: %v", logic.SupportedEmotions())})
		return
	}
	style := strings.ToLower(form.Style)
	if style == "" {
		style = "photorealistic"
	}

	// 参考图可选
	data, ok := readImageFile(c, "image", false)
	if !ok {
		return
	}
	var seed string
	if len(data) > 0 {
		seed = base64.StdEncoding.EncodeToString(data)
	}

	prompt, params := logic.BuildGeneratePrompt(emotion, style, seed != "")
	zap.L().Info("submitting generate job",
		zap.String("prompt", prompt), zap.Bool("seed_used", seed != ""))

	img, err := h.generator.GenerateSync(c.Request.Context(), &horde.GenerationRequest{
		Prompt:      prompt,
		Model:       horde.DefaultModel,
		SourceImage: seed,
		Params:      params,
	}, h.genTimeout)
	if err != nil {
		zap.L().Error("generate image failed", zap.Error(err))
		c.JSON(500, gin.H{"error": "Error generating image: " + err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=generated_image.png")
	c.Header("X-Style", style)
	c.Header("X-Target-Emotion", emotion)
	c.Header("X-Seed-Used", strconv.FormatBool(seed != ""))
	c.Data(200, "image/png", img)
}
