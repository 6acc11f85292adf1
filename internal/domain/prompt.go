package domain

import (
	"fmt"
	"strings"
)

// PromptKind discriminates the two prompt input variants.
type PromptKind string

const (
	PromptKindPreset PromptKind = "preset"
	PromptKindCustom PromptKind = "custom"
)

// PromptSpec is the tagged prompt union accepted from callers: either
// a named preset style or free-form positive/negative word lists. Both
// variants normalize to the same positive/negative prompt pair via
// Resolve.
type PromptSpec struct {
	Kind     PromptKind `json:"kind"`
	Preset   string     `json:"preset,omitempty"`
	Positive []string   `json:"positive,omitempty"`
	Negative []string   `json:"negative,omitempty"`
}

type promptPair struct {
	positive string
	negative string
}

// presetPrompts is the closed table of curated style presets.
var presetPrompts = map[string]promptPair{
	"anime": {
		positive: "anime style, vibrant colors, clean line art, detailed illustration",
		negative: "photorealistic, blurry, low quality, watermark",
	},
	"oil_painting": {
		positive: "oil painting, textured brush strokes, rich color, canvas",
		negative: "photograph, digital artifacts, low quality, text",
	},
	"watercolor": {
		positive: "watercolor painting, soft edges, pastel palette, paper texture",
		negative: "harsh lines, oversaturated, low quality, watermark",
	},
	"cyberpunk": {
		positive: "cyberpunk, neon lights, futuristic city, high contrast, detailed",
		negative: "daylight, rustic, blurry, low quality",
	},
	"sketch": {
		positive: "pencil sketch, monochrome, hand drawn, fine hatching",
		negative: "color, photorealistic, blurry, watermark",
	},
}

// Resolve normalizes the spec into a non-empty positive/negative
// prompt pair. Unknown presets and empty custom positive lists are
// ErrInvalidPrompt.
func (p PromptSpec) Resolve() (string, string, error) {
	switch p.Kind {
	case PromptKindPreset:
		pair, ok := presetPrompts[strings.TrimSpace(strings.ToLower(p.Preset))]
		if !ok {
			return "", "", fmt.Errorf("%w: unknown preset %q", ErrInvalidPrompt, p.Preset)
		}
		return pair.positive, pair.negative, nil
	case PromptKindCustom:
		positive := joinWords(p.Positive)
		if positive == "" {
			return "", "", fmt.Errorf("%w: custom prompt needs at least one positive word", ErrInvalidPrompt)
		}
		return positive, joinWords(p.Negative), nil
	default:
		return "", "", fmt.Errorf("%w: unknown prompt kind %q", ErrInvalidPrompt, p.Kind)
	}
}

// PresetNames lists the supported preset identifiers, for display.
func PresetNames() []string {
	names := make([]string, 0, len(presetPrompts))
	for name := range presetPrompts {
		names = append(names, name)
	}
	return names
}

func joinWords(words []string) string {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			cleaned = append(cleaned, w)
		}
	}
	return strings.Join(cleaned, ", ")
}
