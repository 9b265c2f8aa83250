package fusion

import (
	"context"
	"fmt"
	"strings"

	"github.com/checkfuse/checkfuse/internal/llm"
	"github.com/checkfuse/checkfuse/internal/model"
)

const fusionSystemPrompt = "You are an expert at merging audit checklist items while preserving all critical requirements."

// BuildFusionPrompt renders the merge instruction for a pair of items.
func BuildFusionPrompt(a, b model.ChecklistItem) string {
	var sb strings.Builder
	sb.WriteString("You are an expert at merging audit checklist items. Given two similar checklist items from different standards, create a single, comprehensive checklist item that satisfies both requirements.\n\n")

	fmt.Fprintf(&sb, "Item 1 (%s):\n%s\n", a.Category, a.Text)
	if len(a.References) > 0 {
		fmt.Fprintf(&sb, "References: %s\n", strings.Join(a.References, ", "))
	}
	fmt.Fprintf(&sb, "\nItem 2 (%s):\n%s\n", b.Category, b.Text)
	if len(b.References) > 0 {
		fmt.Fprintf(&sb, "References: %s\n", strings.Join(b.References, ", "))
	}

	sb.WriteString(`
Create a fused checklist item that:
1. Preserves all critical requirements from both items
2. Eliminates redundancy
3. Uses clear, professional language
4. Maintains regulatory compliance for both standards
5. Is concise but complete

Return only the fused text without any explanation or preamble.`)
	return sb.String()
}

// FallbackText is the deterministic merge used when generation fails:
// plain concatenation of both texts.
func FallbackText(a, b model.ChecklistItem) string {
	return a.Text + " " + b.Text
}

// GenerateFusedText asks the generator for merged wording. An empty
// completion is treated as a failure so the caller can fall back.
func GenerateFusedText(ctx context.Context, g llm.Generator, a, b model.ChecklistItem) (string, error) {
	text, err := g.Complete(ctx, BuildFusionPrompt(a, b), fusionSystemPrompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty fusion text returned")
	}
	return text, nil
}
