package sse

import "encoding/json"

// TaskEvent 异步生成任务结束时推送给前端的事件
type TaskEvent struct {
	UserID uint64 `json:"user_id"`
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Hub 管理基于 topic（用户ID）的 SSE 订阅者
//
// 订阅/退订/发布都走内部控制通道，在 Run 的单个 goroutine 里串行处理，
// topics 不需要额外加锁。channel 由 handler 创建并关闭，Hub 只负责写入。
type Hub struct {
	topics map[string]map[chan []byte]bool

	subscribe   chan subscription
	unsubscribe chan subscription
	publish     chan topicMessage
}

type subscription struct {
	ch    chan []byte
	topic string
}

type topicMessage struct {
	topic string
	msg   []byte
}

var defaultHub *Hub

// NewHub 创建 Hub；publish 通道带缓冲（100），短时突发的发布不会阻塞发布方
func NewHub() *Hub {
	return &Hub{
		topics:      make(map[string]map[chan []byte]bool),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		publish:     make(chan topicMessage, 100),
	}
}

// SetDefaultHub 设置包级默认 hub
func SetDefaultHub(h *Hub) {
	defaultHub = h
}

// GetHub 返回默认 hub（未设置时为 nil）
func GetHub() *Hub {
	return defaultHub
}

// Run 事件循环，应在单独的 goroutine 中运行：go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case s := <-h.subscribe:
			subs, ok := h.topics[s.topic]
			if !ok {
				subs = make(map[chan []byte]bool)
				h.topics[s.topic] = subs
			}
			subs[s.ch] = true
		case s := <-h.unsubscribe:
			if subs, ok := h.topics[s.topic]; ok {
				delete(subs, s.ch)
				if len(subs) == 0 {
					delete(h.topics, s.topic)
				}
			}
		case tm := <-h.publish:
			for ch := range h.topics[tm.topic] {
				select {
				case ch <- tm.msg:
				default:
					// 客户端不读就丢弃
				}
			}
		}
	}
}

// PublishTopic 把消息发布到指定 topic 的所有订阅者
func (h *Hub) PublishTopic(topic string, msg []byte) {
	h.publish <- topicMessage{topic: topic, msg: msg}
}

// PublishTaskEvent 序列化任务事件并发布到对应用户的 topic
func (h *Hub) PublishTaskEvent(topic string, ev TaskEvent) {
	if b, err := json.Marshal(ev); err == nil {
		h.PublishTopic(topic, b)
	}
}

// Subscribe 注册订阅通道；调用方应提供带缓冲的 channel 并负责退订后关闭
func (h *Hub) Subscribe(ch chan []byte, topic string) {
	h.subscribe <- subscription{ch: ch, topic: topic}
}

// Unsubscribe 取消订阅
func (h *Hub) Unsubscribe(ch chan []byte, topic string) {
	h.unsubscribe <- subscription{ch: ch, topic: topic}
}
