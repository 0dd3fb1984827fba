package sse

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServeSSE 建立 SSE 长连接，异步生成任务结束后向对应用户推送 TaskEvent
// 通过查询参数 userid 指定订阅的主题，例如 /events?userid=0
func ServeSSE(c *gin.Context) {
	topic := c.Query("userid")
	if topic == "" {
		c.String(http.StatusBadRequest, "missing topic")
		return
	}

	h := GetHub()
	if h == nil {
		c.String(http.StatusInternalServerError, "sse hub not initialized")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// 连接专用通道（缓冲 16），退出时退订；channel 由本函数所有
	msgCh := make(chan []byte, 16)
	h.Subscribe(msgCh, topic)
	defer h.Unsubscribe(msgCh, topic)

	// 先发一个注释行作为握手，某些代理需要它来保持连接
	fmt.Fprintf(c.Writer, ": connected\n\n")
	flusher.Flush()

	notify := c.Request.Context().Done()
	for {
		select {
		case <-notify:
			return
		case msg := <-msgCh:
			fmt.Fprintf(c.Writer, "data: %s\n\n", string(msg))
			flusher.Flush()
			zap.L().Debug("sse event sent", zap.String("topic", topic))
		}
	}
}
