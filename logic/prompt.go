package logic

import (
	"fmt"
	"sort"

	"EmoFace/pkg/horde"
)

// 每种情绪对应的固定描述短语
var emotionPhrases = map[string]string{
	"happy":     "gentle smile, eyes slightly crinkled, joyful expression",
	"sad":       "downturned mouth, drooping eyes, melancholy expression",
	"angry":     "furrowed brow, intense gaze, stern expression",
	"surprised": "raised eyebrows, wide eyes, open mouth",
	"neutral":   "calm expression, relaxed features, peaceful look",
	"disgust":   "wrinkled nose, slight frown, disapproving look",
	"fear":      "wide eyes, tense features, worried expression",
}

// 每种风格对应的描述短语，未知风格回落到写实风格
var stylePhrases = map[string]string{
	"photorealistic": "photorealistic, high detail, professional photography",
	"cartoon":        "cartoon style, animated, colorful, digital art",
	"oil":            "oil painting style, artistic, painterly, classical art",
}

const fallbackStyleDesc = "photorealistic, high detail"

// SupportedEmotion 情绪是否在支持的集合内
func SupportedEmotion(emotion string) bool {
	_, ok := emotionPhrases[emotion]
	return ok
}

// SupportedEmotions 返回排好序的情绪列表，用于错误提示
func SupportedEmotions() []string {
	out := make([]string, 0, len(emotionPhrases))
	for e := range emotionPhrases {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// BuildEditPrompt 构造 img2img 表情修改的提示词和参数
// intensity 由调用方约束在 [0,1]，映射到 denoising_strength 的 [0.2, 0.8]
func BuildEditPrompt(targetEmotion string, intensity float64) (string, horde.Params) {
	prompt := fmt.Sprintf("same person, %s, photorealistic portrait", emotionPhrases[targetEmotion])
	denoising := 0.2 + intensity*0.6
	return prompt, horde.Params{
		Steps:             20,
		Width:             512,
		Height:            512,
		CfgScale:          7.5,
		SamplerName:       "k_euler",
		DenoisingStrength: &denoising,
	}
}

// BuildGeneratePrompt 构造生成新图的提示词和参数
// 有参考图时强调同一人并固定 denoising 0.6；没有参考图则不带 denoising key
func BuildGeneratePrompt(targetEmotion, style string, hasSeed bool) (string, horde.Params) {
	styleDesc, ok := stylePhrases[style]
	if !ok {
		styleDesc = fallbackStyleDesc
	}
	emotionPhrase := emotionPhrases[targetEmotion]

	params := horde.Params{
		Steps:       25,
		Width:       512,
		Height:      512,
		CfgScale:    7.5,
		SamplerName: "k_euler",
	}
	if hasSeed {
		d := 0.6
		params.DenoisingStrength = &d
		return fmt.Sprintf("portrait of the same person, %s, %s", emotionPhrase, styleDesc), params
	}
	return fmt.Sprintf("portrait of a person showing %s, %s", emotionPhrase, styleDesc), params
}
