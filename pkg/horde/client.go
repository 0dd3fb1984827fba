package horde

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"EmoFace/pkg/retry"

	"go.uber.org/zap"
)

const (
	// DefaultModel 默认的生成模型
	DefaultModel = "stable_diffusion"

	submitPath = "/api/v2/generate/async"
	statusPath = "/api/v2/generate/status/"
	userAgent  = "EmoFace/1.0"

	// DefaultPollInterval 轮询间隔，固定步长的 short-poll
	DefaultPollInterval = 3 * time.Second
	// DefaultPollTimeout 轮询总时限
	DefaultPollTimeout = 180 * time.Second
)

// 默认生成参数，调用方给的参数逐字段覆盖在其上
var defaultParams = Params{
	Steps:       30,
	Width:       512,
	Height:      512,
	CfgScale:    7.5,
	SamplerName: "k_euler",
}

// Client Stable Horde 异步生成接口的客户端
type Client struct {
	apiKey       string
	baseURL      string
	http         *http.Client
	retry        retry.Policy
	pollInterval time.Duration
}

// NewClient 创建 Horde 客户端，apiKey 可用匿名 key
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		// 提交阶段固定重试一次，间隔 2s
		retry:        retry.Policy{Attempts: 2, Delay: 2 * time.Second},
		pollInterval: DefaultPollInterval,
	}
}

// mergeParams 把调用方参数覆盖到默认参数上，零值字段回落到默认值
func mergeParams(p Params) Params {
	merged := defaultParams
	if p.Steps > 0 {
		merged.Steps = p.Steps
	}
	if p.Width > 0 {
		merged.Width = p.Width
	}
	if p.Height > 0 {
		merged.Height = p.Height
	}
	if p.CfgScale > 0 {
		merged.CfgScale = p.CfgScale
	}
	if p.SamplerName != "" {
		merged.SamplerName = p.SamplerName
	}
	merged.DenoisingStrength = p.DenoisingStrength
	return merged
}

// Submit 提交生成任务，返回上游分配的任务 ID 和原始响应
// 传输失败或非 202 响应重试一次后放弃；202 响应缺少任务 ID 视为永久失败
// 注意：上游不是幂等的，外层整体重试会在上游再建一个任务
func (c *Client) Submit(ctx context.Context, req *GenerationRequest) (string, *SubmitResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	payload := submitPayload{
		Prompt:         req.Prompt,
		Models:         []string{model},
		Params:         mergeParams(req.Params),
		NSFW:           false,
		TrustedWorkers: true,
		R2:             true,
	}
	if req.SourceImage != "" {
		payload.SourceImage = req.SourceImage
		if payload.Params.DenoisingStrength == nil {
			d := 0.75
			payload.Params.DenoisingStrength = &d
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}

	var result SubmitResponse
	err = c.retry.Do(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("User-Agent", userAgent)
		httpReq.Header.Set("apikey", c.apiKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)

		if resp.StatusCode != http.StatusAccepted {
			return &StatusError{Op: "submit", StatusCode: resp.StatusCode, Body: string(respBody)}
		}
		result = SubmitResponse{}
		if err := json.Unmarshal(respBody, &result); err != nil {
			return retry.Permanent(&SubmissionError{Reason: "malformed submit response", Err: err})
		}
		if result.ID == "" {
			return retry.Permanent(&SubmissionError{Reason: "no job ID in response"})
		}
		return nil
	})
	if err != nil {
		var se *SubmissionError
		if errors.As(err, &se) {
			return "", nil, se
		}
		return "", nil, &SubmissionError{Err: err}
	}
	zap.L().Info("horde job submitted", zap.String("job_id", result.ID))
	return result.ID, &result, nil
}

// Poll 轮询任务直到 done/失败/超时，返回有效结果引用（保持上游顺序）和终态响应
// 轮询内部不重试：状态查询一旦失败就立即返回，与提交阶段的策略不同
// progress 非 nil 时每轮未完成的状态都会回调一次，调用方用来透出排队位置
func (c *Client) Poll(ctx context.Context, jobID string, interval, timeout time.Duration, progress func(*StatusResponse)) ([]string, *StatusResponse, error) {
	if interval <= 0 {
		interval = c.pollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	start := time.Now()
	statusURL := c.baseURL + statusPath + jobID

	for {
		if elapsed := time.Since(start); elapsed > timeout {
			return nil, nil, &TimeoutError{JobID: jobID, Elapsed: elapsed.Round(time.Second)}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return nil, nil, err
		}
		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, nil, err
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, nil, &StatusError{Op: "status", StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		var status StatusResponse
		if err := json.Unmarshal(respBody, &status); err != nil {
			return nil, nil, err
		}
		if !status.Possible() {
			return nil, &status, &JobImpossibleError{JobID: jobID}
		}
		if status.Done {
			var images []string
			for _, gen := range status.Generations {
				if gen.Img != "" {
					images = append(images, gen.Img)
				}
			}
			if len(images) == 0 {
				return nil, &status, &EmptyResultError{JobID: jobID}
			}
			zap.L().Info("horde job completed",
				zap.String("job_id", jobID),
				zap.Int("images", len(images)))
			return images, &status, nil
		}

		if status.QueuePosition > 0 {
			zap.L().Debug("horde job queued",
				zap.String("job_id", jobID),
				zap.Int("queue_position", status.QueuePosition))
		}
		if progress != nil {
			progress(&status)
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// GenerateSync 同步走完 提交→轮询→取回 的完整流程，返回第一张图的原始字节
func (c *Client) GenerateSync(ctx context.Context, req *GenerationRequest, timeout time.Duration) ([]byte, error) {
	jobID, _, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	images, _, err := c.Poll(ctx, jobID, 0, timeout, nil)
	if err != nil {
		return nil, err
	}
	return c.Materialize(ctx, images[0])
}
