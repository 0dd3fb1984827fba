package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const picDir = "./public/pic"

// SaveImage 把生成的图片字节写到 public/pic 下，返回可对外访问的相对路径
func SaveImage(data []byte, taskID string) (string, error) {
	if err := os.MkdirAll(picDir, 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %v", err)
	}
	filename := taskID + ".png"
	if err := os.WriteFile(filepath.Join(picDir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("写入文件失败: %v", err)
	}
	return "public/pic/" + filename, nil
}
