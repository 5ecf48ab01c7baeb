package moderation

import (
	"strings"
	"testing"
)

func TestVerdictString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		verdict Verdict
		want    string
	}{
		{
			"valid agricultural",
			Verdict{Category: CategoryValidAgricultural, Action: "Answer normally."},
			"**Moderation Recommendation:** Answer normally. (Valid Agricultural)",
		},
		{
			"role obfuscation",
			Verdict{Category: CategoryRoleObfuscation, Action: "Decline."},
			"**Moderation Recommendation:** Decline. (Role Obfuscation)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.verdict.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerdictValid(t *testing.T) {
	t.Parallel()

	if !(Verdict{Category: CategoryValidAgricultural}).Valid() {
		t.Error("Valid() = false for valid_agricultural")
	}
	for _, c := range []Category{
		CategoryNonAgricultural,
		CategoryExternalReference,
		CategoryCompoundMixed,
		CategoryUnsafeIllegal,
		CategoryPolitical,
		CategoryRoleObfuscation,
	} {
		if (Verdict{Category: c}).Valid() {
			t.Errorf("Valid() = true for %s", c)
		}
	}
}

func TestSystemPromptNamesEveryCategory(t *testing.T) {
	t.Parallel()

	for _, c := range []Category{
		CategoryValidAgricultural,
		CategoryNonAgricultural,
		CategoryExternalReference,
		CategoryCompoundMixed,
		CategoryUnsafeIllegal,
		CategoryPolitical,
		CategoryRoleObfuscation,
	} {
		if !strings.Contains(systemPrompt, string(c)) {
			t.Errorf("system prompt does not mention category %s", c)
		}
	}
}
