package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TaskRecord 用户任务记录
type TaskRecord struct {
	TaskID string            `json:"task_id"`
	Kind   string            `json:"kind"` // edit, generate
	Status string            `json:"status"`
	Fields map[string]string `json:"fields"`
}

// UserHistoryPage 分页结果
type UserHistoryPage struct {
	Tasks      []TaskRecord `json:"tasks"`
	NextCursor string       `json:"next_cursor"` // 下一页游标，空表示无更多数据
	HasMore    bool         `json:"has_more"`
	PageSize   int          `json:"page_size"`
}

// GetUserTaskHistory 根据用户ID从Redis获取任务历史，游标分页
// cursor 首次请求传空字符串
func GetUserTaskHistory(userID uint64, cursor string, pageSize int) (*UserHistoryPage, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}

	pattern := fmt.Sprintf("user:%d:task:*", userID)

	var scanCursor uint64
	if cursor != "" {
		if c, err := strconv.ParseUint(cursor, 10, 64); err == nil {
			scanCursor = c
		}
	}

	keys, nextCursor, err := Client.Scan(scanCursor, pattern, int64(pageSize)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan redis keys: %v", err)
	}

	tasks := make([]TaskRecord, 0, len(keys))
	for _, key := range keys {
		hash, err := Client.HGetAll(key).Result()
		if err != nil || len(hash) == 0 {
			continue
		}
		idx := strings.LastIndex(key, ":")
		tasks = append(tasks, TaskRecord{
			TaskID: key[idx+1:],
			Kind:   hash["kind"],
			Status: hash["status"],
			Fields: hash,
		})
	}
	// SCAN 不保证顺序，按创建时间倒序排一下
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].Fields["created_at"] > tasks[j].Fields["created_at"]
	})

	page := &UserHistoryPage{
		Tasks:    tasks,
		PageSize: pageSize,
		HasMore:  nextCursor != 0,
	}
	if nextCursor != 0 {
		page.NextCursor = strconv.FormatUint(nextCursor, 10)
	}
	return page, nil
}
