// Package parser turns raw checklist documents into structured checklists.
// Structured extraction is delegated to an external document-understanding
// service; a line-based fallback handles plain-text exports when no service
// is configured.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/checkfuse/checkfuse/internal/model"
)

// Parser produces a structured checklist from raw document bytes.
type Parser interface {
	Parse(ctx context.Context, data []byte, fileName string) (*model.ParsedChecklist, error)
}

var (
	sectionHeaderRe = regexp.MustCompile(`^[A-Z]\.\s+`)
	numberedItemRe  = regexp.MustCompile(`^\d+[.)]\s`)
	bulletRe        = regexp.MustCompile(`^[\x{2022}\x{2023}\x{25E6}\x{2043}\x{2219}]`)
	trailingRefRe   = regexp.MustCompile(`\(([^)]+)\)\s*$`)
	itemPrefixRe    = regexp.MustCompile(`^[\x{2022}\x{2023}\x{25E6}\x{2043}\x{2219}\x{2610}\x{25A1}\x{2611}\x{2713}\x{2717}\d.)\s]+`)
)

var checkboxMarkers = []string{"☐", "□", "☑", "✓", "✗"}

// TextParser parses plain-text checklist exports line by line. It cannot
// read binary PDF content.
type TextParser struct{}

func (TextParser) Parse(_ context.Context, data []byte, fileName string) (*model.ParsedChecklist, error) {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, fmt.Errorf("%s is a binary PDF; configure a parser endpoint for structured extraction", fileName)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: empty document", fileName)
	}

	var items []model.ChecklistItem
	currentSection := "General"
	itemCounter := 1

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if sectionHeaderRe.MatchString(line) && len(line) < 100 {
			currentSection = line
			continue
		}

		if !isChecklistLine(line) || len(line) <= 10 {
			continue
		}

		var references []string
		body := line
		if m := trailingRefRe.FindStringSubmatchIndex(line); m != nil {
			references = []string{line[m[2]:m[3]]}
			body = strings.TrimSpace(line[:m[0]])
		}

		clean := strings.TrimSpace(itemPrefixRe.ReplaceAllString(body, ""))
		if clean == "" {
			continue
		}

		items = append(items, model.ChecklistItem{
			ID:         fmt.Sprintf("item_%d", itemCounter),
			Section:    currentSection,
			Text:       clean,
			References: references,
			Category:   detectCategory(clean),
		})
		itemCounter++
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%s: no checklist items recognized", fileName)
	}

	return &model.ParsedChecklist{
		Items: items,
		Metadata: model.ChecklistMetadata{
			Title:    strings.TrimSuffix(fileName, ".txt"),
			Date:     time.Now().Format("2006-01-02"),
			Sections: sectionNames(items),
		},
	}, nil
}

func isChecklistLine(line string) bool {
	for _, marker := range checkboxMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return numberedItemRe.MatchString(line) || bulletRe.MatchString(line)
}

func sectionNames(items []model.ChecklistItem) []string {
	var out []string
	seen := make(map[string]bool)
	for _, item := range items {
		if !seen[item.Section] {
			seen[item.Section] = true
			out = append(out, item.Section)
		}
	}
	return out
}
