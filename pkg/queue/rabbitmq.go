package queue

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"EmoFace/pkg/retry"
	"EmoFace/task"

	"github.com/streadway/amqp"
)

// GenerationQueue 异步生成任务队列的最小接口
// redelivered 表示该投递已经失败重入队过一次，再失败就是终态
type GenerationQueue interface {
	PublishGenerationTask(b []byte, priority int) error
	Consume(handler func(t task.GenerationTask, redelivered bool) error) error
	Close() error
}

var (
	genOnce     sync.Once
	genInstance GenerationQueue
	genInitErr  error
)

// InitGenerationQueue 使用单例模式初始化队列（首次调用生效，后续调用忽略）
func InitGenerationQueue(dsn string) error {
	genOnce.Do(func() {
		inst, err := newAMQPQueue(dsn)
		if err != nil {
			genInitErr = err
			log.Printf("failed to init AMQP queue: %v", err)
			return
		}
		genInstance = inst
	})
	return genInitErr
}

// GetGenerationQueue 获取队列实例
func GetGenerationQueue() (GenerationQueue, error) {
	if genInstance == nil {
		if genInitErr != nil {
			return nil, genInitErr
		}
		return nil, errors.New("generation queue not initialized; call InitGenerationQueue")
	}
	return genInstance, nil
}

// --- AMQP 实现 ---
type amqpQueue struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	queueName string
}

func newAMQPQueue(dsn string) (GenerationQueue, error) {
	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// 死信交换机和队列，处理失败的任务最终落在这里
	dlxName := "generation_dlq_exchange"
	dlqName := "generation_dlq"

	if err := ch.ExchangeDeclare(dlxName, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(dlqName, dlqName, dlxName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// 主队列参数，设置死信路由和优先级
	args := amqp.Table{
		"x-dead-letter-exchange":    dlxName,
		"x-dead-letter-routing-key": dlqName,
		"x-max-priority":            10,
	}
	q, err := ch.QueueDeclare(
		"generation_tasks", // name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		args,               // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// 生成任务会阻塞在上游轮询上，并发数不宜太大
	_ = ch.Qos(5, 0, false)

	return &amqpQueue{conn: conn, ch: ch, queueName: q.Name}, nil
}

// PublishGenerationTask 发布生成任务
func (q *amqpQueue) PublishGenerationTask(b []byte, priority int) error {
	return q.ch.Publish(
		"", q.queueName, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         b,
			DeliveryMode: amqp.Persistent,
			Priority:     uint8(priority),
		},
	)
}

// Consume 消费生成任务，handler 处理成功后 Ack
// handler 返回 retry.PermanentError 直接进死信队列；
// 其它错误借助 Redelivered 标记重入队一次，再失败也进死信队列
func (q *amqpQueue) Consume(handler func(t task.GenerationTask, redelivered bool) error) error {
	deliveries, err := q.ch.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	// 并发控制，与上面 Qos 的值配合使用
	concurrency := 5
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for d := range deliveries {
		sem <- struct{}{}
		wg.Add(1)
		go func(del amqp.Delivery) {
			defer func() { <-sem; wg.Done() }()

			var t task.GenerationTask
			if err := json.Unmarshal(del.Body, &t); err != nil {
				log.Printf("Invalid generation task payload: %v", err)
				_ = del.Nack(false, false) // 进入DLQ
				return
			}

			if err := handler(t, del.Redelivered); err != nil {
				var pe *retry.PermanentError
				if errors.As(err, &pe) {
					log.Printf("Permanent error processing task %s: %v", t.TaskID, err)
					_ = del.Nack(false, false)
					return
				}
				if del.Redelivered {
					log.Printf("Repeated failure processing task %s: %v", t.TaskID, err)
					_ = del.Nack(false, false)
					return
				}
				log.Printf("Temporary error processing task %s: %v; requeueing once", t.TaskID, err)
				_ = del.Nack(false, true)
				return
			}
			_ = del.Ack(false)
		}(d)
	}

	wg.Wait()
	return nil
}

func (q *amqpQueue) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
