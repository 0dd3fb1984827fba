package horde

import (
	"fmt"
	"time"
)

// SubmissionError 提交阶段失败：重试耗尽，或 202 响应里没有任务 ID
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return "horde submission failed: " + e.Err.Error()
	}
	return "horde submission failed: " + e.Reason
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// StatusError 上游返回了非成功的 HTTP 状态码
type StatusError struct {
	Op         string // submit / status
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("horde %s failed: %d - %s", e.Op, e.StatusCode, e.Body)
}

// TimeoutError 轮询超出总时限，任务可能仍在上游继续执行
type TimeoutError struct {
	JobID   string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s timed out after %s", e.JobID, e.Elapsed)
}

// JobImpossibleError 上游判定任务不可完成，立即终止，不等超时
type JobImpossibleError struct {
	JobID string
}

func (e *JobImpossibleError) Error() string {
	return fmt.Sprintf("job %s marked as impossible by horde", e.JobID)
}

// EmptyResultError 任务完成但没有任何有效结果
type EmptyResultError struct {
	JobID string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("job %s completed with no valid images", e.JobID)
}

// DownloadError 结果 URL 下载失败
type DownloadError struct {
	URL        string
	StatusCode int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download image: %d (%s)", e.StatusCode, e.URL)
}

// DecodeError 结果的 base64 载荷无法解码
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "failed to decode image payload: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }
