package horde

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
)

// Materialize 把一条结果引用解析成原始图片字节
// 三种形式按序判断：http(s) URL 下载；data-URI 去掉逗号前缀后解码；裸 base64 直接解码
func (c *Client) Materialize(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, &DownloadError{URL: ref, StatusCode: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	}

	if strings.HasPrefix(ref, "data:") {
		if idx := strings.Index(ref, ","); idx >= 0 {
			ref = ref[idx+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(ref)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return data, nil
}
