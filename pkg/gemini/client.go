package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"EmoFace/pkg/retry"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DetectPrompt 情绪识别指令，要求模型只返回 JSON
const DetectPrompt = "Identify the dominant facial emotion in the attached image and return ONLY JSON: {dominant_emotion, confidence, all_scores}."

const detectModel = "gemini-2.5-flash"

// LowConfidenceThreshold 低于该置信度给结果打低置信标记，但不拦截结果
const LowConfidenceThreshold = 0.5

// EmotionResult 一次识别的结构化结果，不持久化
type EmotionResult struct {
	DominantEmotion string             `json:"dominant_emotion"`
	Confidence      float64            `json:"confidence"`
	AllScores       map[string]float64 `json:"all_scores"`
	LowConfidence   bool               `json:"low_confidence,omitempty"`
}

// ResponseFormatError 调用成功但响应内容不符合约定格式
// Snippet 截取出错文本的前 200 字符用于排查
type ResponseFormatError struct {
	Reason  string
	Snippet string
}

func (e *ResponseFormatError) Error() string {
	if e.Snippet == "" {
		return "invalid gemini response: " + e.Reason
	}
	return "invalid gemini response: " + e.Reason + ": " + e.Snippet
}

// Client Gemini 多模态情绪识别客户端
type Client struct {
	client *genai.Client
	retry  retry.Policy
}

// NewClient 创建客户端，key 从配置显式传入而不是包内读环境变量
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	return newClient(ctx, defaultClientConfig(apiKey))
}

// defaultClientConfig 单次请求 30s 超时，挂住的连接交给重试而不是无限等
func defaultClientConfig(apiKey string) *genai.ClientConfig {
	return &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func newClient(ctx context.Context, cc *genai.ClientConfig) (*Client, error) {
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: c,
		// 传输错误和 5xx 重试一次，间隔 1s
		retry: retry.Policy{Attempts: 2, Delay: time.Second},
	}, nil
}

// DetectEmotion 识别图片中的主导表情
// imageBytes 为空时仅发送文本指令（用于连通性自检）
func (c *Client) DetectEmotion(ctx context.Context, imageBytes []byte) (*EmotionResult, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(DetectPrompt),
	}
	if len(imageBytes) > 0 {
		parts = append(parts, genai.NewPartFromBytes(imageBytes, "image/jpeg"))
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	var resp *genai.GenerateContentResponse
	err := c.retry.Do(ctx, func() error {
		var callErr error
		resp, callErr = c.client.Models.GenerateContent(ctx, detectModel, contents, nil)
		if callErr != nil {
			var apiErr genai.APIError
			if errors.As(callErr, &apiErr) && apiErr.Code < 500 {
				// 4xx 是请求本身的问题，重试没有意义
				return retry.Permanent(callErr)
			}
			return callErr
		}
		return nil
	})
	if err != nil {
		zap.L().Error("gemini detect failed", zap.Error(err))
		return nil, err
	}
	return parseDetectResponse(resp)
}

// parseDetectResponse 取第一个候选的第一个文本 part，剥掉 markdown 代码栅栏后按 JSON 解析
func parseDetectResponse(resp *genai.GenerateContentResponse) (*EmotionResult, error) {
	var text string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.Text != "" {
				text = p.Text
				break
			}
		}
	}
	if text == "" {
		return nil, &ResponseFormatError{Reason: "no text part in response"}
	}

	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var raw struct {
		DominantEmotion *string            `json:"dominant_emotion"`
		Confidence      *float64           `json:"confidence"`
		AllScores       map[string]float64 `json:"all_scores"`
	}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, &ResponseFormatError{Reason: "could not parse JSON", Snippet: snippet(clean)}
	}
	if raw.DominantEmotion == nil || raw.Confidence == nil || raw.AllScores == nil {
		return nil, &ResponseFormatError{Reason: "missing required keys", Snippet: snippet(clean)}
	}

	result := &EmotionResult{
		DominantEmotion: *raw.DominantEmotion,
		Confidence:      *raw.Confidence,
		AllScores:       raw.AllScores,
	}
	result.LowConfidence = result.Confidence < LowConfidenceThreshold
	return result, nil
}

func snippet(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
