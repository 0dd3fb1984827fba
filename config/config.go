package config

import (
	"errors"
	"os"
)

// 匿名使用 Stable Horde 时的共享 key，优先级最低
const AnonymousHordeKey = "0000000000"

// Config 进程级只读配置，启动时从环境变量读取一次
type Config struct {
	ListenAddr string

	// Gemini 情绪识别
	GeminiAPIKey string

	// Stable Horde 图像生成
	HordeAPIKey  string
	HordeBaseURL string

	// 以下为可选基础设施，留空则关闭对应功能
	RedisAddr   string // 异步任务状态存储
	RabbitMQDSN string // 异步任务队列
	MySQLDSN    string // 生成历史记录
}

// Load 从环境变量加载配置
// GEMINI_API_KEY 必填；STABLE_HORDE_API_KEY 缺省回退到匿名 key
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:   getenv("LISTEN_ADDR", ":8000"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		HordeAPIKey:  getenv("STABLE_HORDE_API_KEY", AnonymousHordeKey),
		HordeBaseURL: getenv("HORDE_BASE_URL", "https://stablehorde.net"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitMQDSN:  os.Getenv("RABBITMQ_DSN"),
		MySQLDSN:     os.Getenv("MYSQL_DSN"),
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}
	return cfg, nil
}

// AsyncEnabled 是否启用异步生成任务（需要 redis + rabbitmq）
func (c *Config) AsyncEnabled() bool {
	return c.RedisAddr != "" && c.RabbitMQDSN != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
