package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestPromptSpecResolve(t *testing.T) {
	testCases := []struct {
		name         string
		spec         PromptSpec
		wantPositive string
		wantNegative string
		wantErr      error
	}{{
		name:         "preset",
		spec:         PromptSpec{Kind: PromptKindPreset, Preset: "anime"},
		wantPositive: "anime style, vibrant colors, clean line art, detailed illustration",
		wantNegative: "photorealistic, blurry, low quality, watermark",
	}, {
		name:         "preset case insensitive",
		spec:         PromptSpec{Kind: PromptKindPreset, Preset: " Cyberpunk "},
		wantPositive: "cyberpunk, neon lights, futuristic city, high contrast, detailed",
		wantNegative: "daylight, rustic, blurry, low quality",
	}, {
		name:    "unknown preset",
		spec:    PromptSpec{Kind: PromptKindPreset, Preset: "vaporwave"},
		wantErr: ErrInvalidPrompt,
	}, {
		name: "custom",
		spec: PromptSpec{
			Kind:     PromptKindCustom,
			Positive: []string{"castle", " fog ", "moonlight"},
			Negative: []string{"people", ""},
		},
		wantPositive: "castle, fog, moonlight",
		wantNegative: "people",
	}, {
		name:         "custom empty negative",
		spec:         PromptSpec{Kind: PromptKindCustom, Positive: []string{"tree"}},
		wantPositive: "tree",
		wantNegative: "",
	}, {
		name:    "custom no positive words",
		spec:    PromptSpec{Kind: PromptKindCustom, Positive: []string{"", "  "}},
		wantErr: ErrInvalidPrompt,
	}, {
		name:    "unknown kind",
		spec:    PromptSpec{Kind: "freestyle"},
		wantErr: ErrInvalidPrompt,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			positive, negative, err := tc.spec.Resolve()
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Resolve error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if positive != tc.wantPositive {
				t.Fatalf("positive = %q, want %q", positive, tc.wantPositive)
			}
			if negative != tc.wantNegative {
				t.Fatalf("negative = %q, want %q", negative, tc.wantNegative)
			}
		})
	}
}

func TestPresetNamesCoverTable(t *testing.T) {
	names := PresetNames()
	if len(names) == 0 {
		t.Fatal("expected at least one preset")
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			t.Fatal("empty preset name")
		}
		if _, _, err := (PromptSpec{Kind: PromptKindPreset, Preset: name}).Resolve(); err != nil {
			t.Fatalf("preset %q failed to resolve: %v", name, err)
		}
	}
}

func TestJobStatus(t *testing.T) {
	if !JobStatusProcessing.Valid() || JobStatus(7).Valid() {
		t.Fatal("Valid misclassified status")
	}
	if JobStatusProcessing.Terminal() || JobStatusPending.Terminal() {
		t.Fatal("non-terminal status reported terminal")
	}
	if !JobStatusSuccess.Terminal() || !JobStatusFailed.Terminal() {
		t.Fatal("terminal status not reported terminal")
	}
	if JobStatusSuccess.String() != "success" {
		t.Fatalf("String = %q", JobStatusSuccess.String())
	}
}
