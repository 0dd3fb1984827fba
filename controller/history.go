package controller

import (
	"strconv"

	"EmoFace/dao/mysql"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetGenerationHistory 从 mysql 查询用户最近的生成记录
// redis 里的任务 24h 过期，长期历史走这里
func (h *Handler) GetGenerationHistory(c *gin.Context) {
	if !h.historyEnabled {
		c.JSON(503, gin.H{"error": "generation history is disabled"})
		return
	}
	userID, _ := strconv.ParseUint(c.Query("userid"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	records, err := mysql.ListRecentGenerations(userID, limit)
	if err != nil {
		zap.L().Error("failed to list generation history", zap.Error(err))
		c.JSON(500, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(200, gin.H{"records": records, "count": len(records)})
}

// GetGenerationRecord 按任务 ID 查询单条生成记录
func (h *Handler) GetGenerationRecord(c *gin.Context) {
	if !h.historyEnabled {
		c.JSON(503, gin.H{"error": "generation history is disabled"})
		return
	}
	record, err := mysql.GetGeneration(c.Param("task_id"))
	if err != nil {
		c.JSON(404, gin.H{"error": "record not found"})
		return
	}
	c.JSON(200, record)
}
