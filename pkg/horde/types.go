package horde

// Params Stable Horde 生成参数
// DenoisingStrength 用指针：nil 表示纯文生图，提交时整个 key 省略
type Params struct {
	Steps             int      `json:"steps"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	CfgScale          float64  `json:"cfg_scale"`
	SamplerName       string   `json:"sampler_name"`
	DenoisingStrength *float64 `json:"denoising_strength,omitempty"`
}

// GenerationRequest 一次生成请求，构造后不再修改
type GenerationRequest struct {
	Prompt      string
	Model       string
	SourceImage string // base64 编码的参考图，无 data: 前缀；为空表示文生图
	Params      Params
}

// submitPayload 提交端点的请求体
type submitPayload struct {
	Prompt         string   `json:"prompt"`
	Models         []string `json:"models"`
	Params         Params   `json:"params"`
	NSFW           bool     `json:"nsfw"`
	TrustedWorkers bool     `json:"trusted_workers"`
	R2             bool     `json:"r2"` // 让 worker 把结果传到远端存储，状态响应里返回 URL
	SourceImage    string   `json:"source_image,omitempty"`
}

// SubmitResponse 提交成功(202)时的响应体
type SubmitResponse struct {
	ID      string `json:"id"`
	Kudos   int    `json:"kudos,omitempty"`
	Message string `json:"message,omitempty"`
}

// Generation 状态响应中的单条生成记录
type Generation struct {
	Img      string `json:"img"` // URL、data-URI 或裸 base64
	Seed     string `json:"seed,omitempty"`
	WorkerID string `json:"worker_id,omitempty"`
	Model    string `json:"model,omitempty"`
}

// StatusResponse 状态端点的响应体
type StatusResponse struct {
	Done          bool         `json:"done"`
	Faulted       bool         `json:"faulted"`
	IsPossible    *bool        `json:"is_possible"` // 缺省视为可行
	QueuePosition int          `json:"queue_position"`
	Waiting       int          `json:"waiting"`
	Processing    int          `json:"processing"`
	Finished      int          `json:"finished"`
	Generations   []Generation `json:"generations"`
}

// Possible is_possible 缺省时按 true 处理
func (s *StatusResponse) Possible() bool {
	return s.IsPossible == nil || *s.IsPossible
}
