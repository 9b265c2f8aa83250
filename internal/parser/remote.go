package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/checkfuse/checkfuse/internal/model"
)

// RemoteParser calls an external document-understanding deployment that
// extracts sections and items from a checklist PDF.
type RemoteParser struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRemoteParser creates a client for the given deployment endpoint.
func NewRemoteParser(endpoint, apiKey string) *RemoteParser {
	return &RemoteParser{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// Wire shapes of the deployment response. The extracted document arrives as
// a JSON string inside the workflow output, possibly wrapped in markdown
// code fences.
type remoteResponse struct {
	Message struct {
		Result []struct {
			Status string `json:"status"`
			Result struct {
				Output map[string]string `json:"output"`
			} `json:"result"`
		} `json:"result"`
	} `json:"message"`
}

type remoteDocument struct {
	Document struct {
		Title   string `json:"title"`
		Version string `json:"version"`
		Date    string `json:"date"`
	} `json:"document"`
	Sections []struct {
		Letter string `json:"letter"`
		Title  string `json:"title"`
		Items  []struct {
			ID         string   `json:"id"`
			Label      string   `json:"label"`
			Text       string   `json:"text"`
			References []string `json:"references"`
			Options    []struct {
				Label string `json:"label"`
			} `json:"options"`
			Page   int            `json:"page"`
			Status string         `json:"status"`
			Notes  string         `json:"notes"`
			Fields map[string]any `json:"fields"`
		} `json:"items"`
	} `json:"sections"`
}

func (p *RemoteParser) Parse(ctx context.Context, data []byte, fileName string) (*model.ParsedChecklist, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty file", fileName)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("files", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	w.WriteField("timeout", "300")
	w.WriteField("include_metadata", "false")
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parser request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("parser error %d: %s", resp.StatusCode, string(b))
	}

	var wire remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode parser response: %w", err)
	}
	return transformRemote(&wire, fileName)
}

// transformRemote converts the deployment's wire shape into a checklist.
func transformRemote(wire *remoteResponse, fileName string) (*model.ParsedChecklist, error) {
	if len(wire.Message.Result) == 0 {
		return nil, fmt.Errorf("invalid parser response: missing result")
	}
	first := wire.Message.Result[0]
	if first.Status != "Success" {
		return nil, fmt.Errorf("parser processing failed with status %q", first.Status)
	}
	if len(first.Result.Output) == 0 {
		return nil, fmt.Errorf("invalid parser response: empty output")
	}

	// The workflow emits a single output key holding the extracted JSON.
	var jsonStr string
	for _, v := range first.Result.Output {
		jsonStr = v
		break
	}
	jsonStr = strings.TrimPrefix(jsonStr, "```json\n")
	jsonStr = strings.TrimSuffix(jsonStr, "\n```")

	var doc remoteDocument
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("parse extracted document: %w", err)
	}

	var items []model.ChecklistItem
	sections := make([]string, 0, len(doc.Sections))
	for _, sec := range doc.Sections {
		sectionTitle := fmt.Sprintf("%s. %s", sec.Letter, sec.Title)
		sections = append(sections, sectionTitle)
		category := detectCategoryFromSection(sec.Title)

		for _, it := range sec.Items {
			text := it.Label
			if text == "" {
				text = it.Text
			}
			options := make([]string, 0, len(it.Options))
			for _, opt := range it.Options {
				options = append(options, opt.Label)
			}
			meta := model.Metadata{}
			if it.Page != 0 {
				meta["page"] = it.Page
			}
			if it.Status != "" {
				meta["status"] = it.Status
			}
			if it.Notes != "" {
				meta["notes"] = it.Notes
			}
			for k, v := range it.Fields {
				meta[k] = v
			}

			items = append(items, model.ChecklistItem{
				ID:         it.ID,
				Section:    sectionTitle,
				Text:       text,
				Options:    options,
				References: it.References,
				Category:   category,
				Metadata:   meta,
			})
		}
	}

	title := doc.Document.Title
	if title == "" {
		title = strings.TrimSuffix(fileName, ".pdf")
	}
	version := doc.Document.Version
	if version == "" {
		version = doc.Document.Date
	}
	date := doc.Document.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	parsed := &model.ParsedChecklist{
		Items: items,
		Metadata: model.ChecklistMetadata{
			Title:    title,
			Version:  version,
			Date:     date,
			Sections: sections,
		},
	}
	if err := parsed.Validate(); err != nil {
		return nil, fmt.Errorf("parser returned unusable checklist: %w", err)
	}
	return parsed, nil
}
