package logic

import (
	"math"
	"strings"
	"testing"
)

func TestBuildGeneratePromptEmotions(t *testing.T) {
	tests := []struct {
		emotion string
		phrase  string
	}{
		{"happy", "gentle smile"},
		{"sad", "downturned mouth"},
		{"angry", "furrowed brow"},
		{"surprised", "raised eyebrows"},
		{"neutral", "calm expression"},
		{"disgust", "wrinkled nose"},
		{"fear", "wide eyes, tense features"},
	}
	for _, tt := range tests {
		prompt, params := BuildGeneratePrompt(tt.emotion, "photorealistic", false)
		if !strings.Contains(prompt, tt.phrase) {
			t.Errorf("prompt for %s = %q, want contains %q", tt.emotion, prompt, tt.phrase)
		}
		if params.DenoisingStrength != nil {
			t.Errorf("text2img params for %s should have no denoising strength", tt.emotion)
		}
		if params.Steps != 25 || params.Width != 512 || params.Height != 512 {
			t.Errorf("unexpected params for %s: %+v", tt.emotion, params)
		}
	}
}

func TestBuildGeneratePromptStyles(t *testing.T) {
	tests := []struct {
		style  string
		phrase string
	}{
		{"photorealistic", "professional photography"},
		{"cartoon", "cartoon style"},
		{"oil", "oil painting style"},
	}
	for _, tt := range tests {
		prompt, _ := BuildGeneratePrompt("happy", tt.style, false)
		if !strings.Contains(prompt, tt.phrase) {
			t.Errorf("prompt for style %s = %q, want contains %q", tt.style, prompt, tt.phrase)
		}
	}
}

func TestBuildGeneratePromptUnknownStyleFallsBack(t *testing.T) {
	prompt, _ := BuildGeneratePrompt("happy", "watercolor", false)
	if !strings.Contains(prompt, "photorealistic, high detail") {
		t.Errorf("unknown style should fall back to photorealistic, got %q", prompt)
	}
}

func TestBuildGeneratePromptWithSeed(t *testing.T) {
	prompt, params := BuildGeneratePrompt("happy", "photorealistic", true)
	if !strings.Contains(prompt, "same person") {
		t.Errorf("seeded prompt should emphasize same person, got %q", prompt)
	}
	if params.DenoisingStrength == nil || *params.DenoisingStrength != 0.6 {
		t.Errorf("seeded generate should fix denoising at 0.6, got %v", params.DenoisingStrength)
	}
}

func TestBuildEditPromptDenoisingRange(t *testing.T) {
	tests := []struct {
		intensity float64
		want      float64
	}{
		{0.0, 0.2},
		{0.5, 0.5},
		{1.0, 0.8},
	}
	for _, tt := range tests {
		_, params := BuildEditPrompt("happy", tt.intensity)
		if params.DenoisingStrength == nil {
			t.Fatalf("edit mode must set denoising strength")
		}
		if math.Abs(*params.DenoisingStrength-tt.want) > 1e-9 {
			t.Errorf("denoising at intensity %v = %v, want %v", tt.intensity, *params.DenoisingStrength, tt.want)
		}
	}
}

func TestBuildEditPromptDenoisingMonotonic(t *testing.T) {
	prev := -1.0
	for i := 0; i <= 10; i++ {
		_, params := BuildEditPrompt("sad", float64(i)/10)
		d := *params.DenoisingStrength
		if d <= prev {
			t.Fatalf("denoising not monotonically increasing at intensity %v", float64(i)/10)
		}
		if d < 0.2 || d > 0.8 {
			t.Fatalf("denoising %v out of [0.2, 0.8]", d)
		}
		prev = d
	}
}

func TestBuildEditPromptContent(t *testing.T) {
	prompt, params := BuildEditPrompt("angry", 0.4)
	if !strings.Contains(prompt, "same person") || !strings.Contains(prompt, "furrowed brow") {
		t.Errorf("unexpected edit prompt %q", prompt)
	}
	if params.Steps != 20 {
		t.Errorf("edit steps = %d, want 20", params.Steps)
	}
}

func TestSupportedEmotion(t *testing.T) {
	if !SupportedEmotion("happy") {
		t.Error("happy should be supported")
	}
	if SupportedEmotion("ecstatic") {
		t.Error("ecstatic should not be supported")
	}
	if got := len(SupportedEmotions()); got != 7 {
		t.Errorf("supported emotions = %d, want 7", got)
	}
}
