package mysql

import (
	"database/sql"
	"errors"
)

// GenerationRecord 一条生成历史
type GenerationRecord struct {
	TaskID        string `db:"task_id"`
	UserID        uint64 `db:"user_id"`
	Kind          string `db:"kind"`
	TargetEmotion string `db:"target_emotion"`
	Style         string `db:"style"`
	Prompt        string `db:"prompt"`
	Status        string `db:"status"`
	ResultPath    string `db:"result_path"`
	CreatedAt     string `db:"created_at"`
}

// InsertGeneration 写入一条生成历史
func InsertGeneration(r *GenerationRecord) error {
	sqlStr := `INSERT INTO t_generations (task_id, user_id, kind, target_emotion, style, prompt, status, result_path, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW())
	           ON DUPLICATE KEY UPDATE status = VALUES(status), result_path = VALUES(result_path)`
	_, err := Db.Exec(sqlStr, r.TaskID, r.UserID, r.Kind, r.TargetEmotion, r.Style, r.Prompt, r.Status, r.ResultPath)
	return err
}

// GetGeneration 按任务ID查询历史
func GetGeneration(taskID string) (*GenerationRecord, error) {
	record := &GenerationRecord{}
	sqlStr := "SELECT task_id, user_id, kind, target_emotion, style, prompt, status, result_path, created_at FROM t_generations WHERE task_id = ?"
	err := Db.Get(record, sqlStr, taskID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("generation record not found")
		}
		return nil, err
	}
	return record, nil
}

// ListRecentGenerations 按用户查询最近的生成记录
func ListRecentGenerations(userID uint64, limit int) ([]GenerationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var records []GenerationRecord
	sqlStr := "SELECT task_id, user_id, kind, target_emotion, style, prompt, status, result_path, created_at FROM t_generations WHERE user_id = ? ORDER BY created_at DESC LIMIT ?"
	err := Db.Select(&records, sqlStr, userID, limit)
	return records, err
}
