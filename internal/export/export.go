// Package export defines the renderer input contract for the fused
// checklist and a plain markdown materialization of it. A paginated PDF
// backend can implement Renderer against the same Document shape.
package export

import (
	"fmt"
	"strings"

	"github.com/checkfuse/checkfuse/internal/model"
)

// Row is one rendered checklist line: the item, the source item ids it
// came from, and whether it is a fused merge of two items.
type Row struct {
	Item      model.ChecklistItem `json:"item"`
	SourceIDs []string            `json:"sourceIds"`
	IsFused   bool                `json:"isFused"`
}

// Document is the full render input: header block plus flat rows. Rows
// arrive pre-sorted by section; renderers group consecutive rows that
// share a section.
type Document struct {
	Title    string   `json:"title"`
	Version  string   `json:"version"`
	Date     string   `json:"date"`
	Sections []string `json:"sections"`
	Rows     []Row    `json:"rows"`
}

// Renderer materializes a document into output bytes.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
}

// BuildDocument derives the render input from a fused checklist, reading
// provenance from the builder's item metadata.
func BuildDocument(fused *model.FusedChecklist) *Document {
	rows := make([]Row, 0, len(fused.Items))
	for _, item := range fused.Items {
		row := Row{Item: item, SourceIDs: []string{item.ID}}
		if from, ok := item.Metadata[model.MetaFusedFrom]; ok {
			row.IsFused = true
			row.SourceIDs = toStrings(from)
		}
		rows = append(rows, row)
	}
	return &Document{
		Title:    fused.Metadata.Title,
		Version:  fused.Metadata.Version,
		Date:     fused.Metadata.Date,
		Sections: fused.Metadata.Sections,
		Rows:     rows,
	}
}

// toStrings tolerates both []string and the []any produced by a JSON
// round trip of the metadata map.
func toStrings(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, e := range vals {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// MarkdownRenderer renders the document as a section-grouped markdown
// table, one row per item with requirement text and references in
// separate columns and fused rows marked.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	fmt.Fprintf(&sb, "Version: %s — Date: %s\n\n", doc.Version, doc.Date)

	currentSection := ""
	for _, row := range doc.Rows {
		if row.Item.Section != currentSection {
			currentSection = row.Item.Section
			fmt.Fprintf(&sb, "## %s\n\n", currentSection)
			sb.WriteString("| | Requirement | References |\n")
			sb.WriteString("|---|---|---|\n")
		}

		marker := "☐"
		text := escapeCell(row.Item.Text)
		if row.IsFused {
			marker = "☐ ⊕"
			text = "**" + text + "** _(fused: " + strings.Join(row.SourceIDs, ", ") + ")_"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", marker, text, escapeCell(strings.Join(row.Item.References, " ")))
	}

	return []byte(sb.String()), nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
