package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleText = `A. Documents et contrats

☐ Le document de licence est signé et archivé (OSAV 4.1)
☐ Le personnel suit une formation annuelle obligatoire

B. Hygiène

1. Le plan de nettoyage et désinfection est affiché
2. tbd
• Les surfaces de production sont contrôlées chaque jour (3.2)

Une ligne sans marqueur qui doit être ignorée.
`

func TestTextParser_Parse(t *testing.T) {
	parsed, err := TextParser{}.Parse(context.Background(), []byte(sampleText), "audit.txt")
	if err != nil {
		t.Fatal(err)
	}

	if len(parsed.Items) != 4 {
		t.Fatalf("expected 4 items, got %d: %+v", len(parsed.Items), parsed.Items)
	}

	first := parsed.Items[0]
	if first.ID != "item_1" || first.Section != "A. Documents et contrats" {
		t.Fatalf("unexpected first item %+v", first)
	}
	if first.Text != "Le document de licence est signé et archivé" {
		t.Fatalf("marker or reference not stripped: %q", first.Text)
	}
	if diff := cmp.Diff([]string{"OSAV 4.1"}, first.References); diff != "" {
		t.Fatalf("references mismatch:\n%s", diff)
	}
	if first.Category != "Documentation" {
		t.Fatalf("expected Documentation, got %s", first.Category)
	}

	if parsed.Items[1].Category != "Personnel" {
		t.Fatalf("expected Personnel, got %s", parsed.Items[1].Category)
	}

	// Numbered and bulleted items land in the second section. The short
	// "2. tbd" line is dropped.
	third := parsed.Items[2]
	if third.Section != "B. Hygiène" || third.Text != "Le plan de nettoyage et désinfection est affiché" {
		t.Fatalf("unexpected item %+v", third)
	}
	fourth := parsed.Items[3]
	if diff := cmp.Diff([]string{"3.2"}, fourth.References); diff != "" {
		t.Fatalf("bullet references mismatch:\n%s", diff)
	}

	if parsed.Metadata.Title != "audit" {
		t.Fatalf("unexpected title %q", parsed.Metadata.Title)
	}
	if diff := cmp.Diff([]string{"A. Documents et contrats", "B. Hygiène"}, parsed.Metadata.Sections); diff != "" {
		t.Fatalf("sections mismatch:\n%s", diff)
	}
}

func TestTextParser_RejectsBinaryPDF(t *testing.T) {
	_, err := TextParser{}.Parse(context.Background(), []byte("%PDF-1.7 binary"), "audit.pdf")
	if err == nil || !strings.Contains(err.Error(), "parser endpoint") {
		t.Fatalf("expected binary PDF rejection, got %v", err)
	}
}

func TestTextParser_EmptyOrUnrecognized(t *testing.T) {
	if _, err := (TextParser{}).Parse(context.Background(), []byte("   \n  "), "a.txt"); err == nil {
		t.Fatal("expected error for empty document")
	}
	if _, err := (TextParser{}).Parse(context.Background(), []byte("prose without any checklist markers\n"), "a.txt"); err == nil {
		t.Fatal("expected error when no items are recognized")
	}
}

func TestDetectCategory(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Le personnel suit une formation annuelle", "Personnel"},
		{"La traçabilité des lots est garantie", "Traceability"},
		{"Rien de particulier", "General"},
	}
	for _, tc := range cases {
		if got := detectCategory(tc.text); got != tc.want {
			t.Errorf("detectCategory(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
	if got := detectCategoryFromSection("Réception des matières premières"); got != "Procurement" {
		t.Errorf("detectCategoryFromSection = %s, want Procurement", got)
	}
}

func remoteWire(status, output string) *remoteResponse {
	var wire remoteResponse
	wire.Message.Result = []struct {
		Status string `json:"status"`
		Result struct {
			Output map[string]string `json:"output"`
		} `json:"result"`
	}{{Status: status}}
	if output != "" {
		wire.Message.Result[0].Result.Output = map[string]string{"extracted": output}
	}
	return &wire
}

const extractedDoc = `{
	"document": {"title": "Audit Checklist", "version": "v2.1", "date": "2025-06-01"},
	"sections": [{
		"letter": "A",
		"title": "Hygiène et nettoyage",
		"items": [{
			"id": "item_1",
			"label": "Les locaux sont nettoyés selon le plan",
			"references": ["3.2"],
			"options": [{"label": "Oui"}, {"label": "Non"}],
			"page": 4,
			"notes": "voir annexe"
		}]
	}]
}`

func TestTransformRemote(t *testing.T) {
	// The workflow wraps the document in markdown code fences.
	fenced := "```json\n" + extractedDoc + "\n```"
	parsed, err := transformRemote(remoteWire("Success", fenced), "audit.pdf")
	if err != nil {
		t.Fatal(err)
	}

	if parsed.Metadata.Title != "Audit Checklist" || parsed.Metadata.Version != "v2.1" {
		t.Fatalf("unexpected metadata %+v", parsed.Metadata)
	}
	if len(parsed.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(parsed.Items))
	}
	item := parsed.Items[0]
	if item.Section != "A. Hygiène et nettoyage" {
		t.Fatalf("unexpected section %q", item.Section)
	}
	if item.Category != "Hygiene" {
		t.Fatalf("expected Hygiene, got %s", item.Category)
	}
	if diff := cmp.Diff([]string{"Oui", "Non"}, item.Options); diff != "" {
		t.Fatalf("options mismatch:\n%s", diff)
	}
	if item.Metadata["page"] != 4 || item.Metadata["notes"] != "voir annexe" {
		t.Fatalf("unexpected item metadata %v", item.Metadata)
	}
}

func TestTransformRemote_Failures(t *testing.T) {
	if _, err := transformRemote(&remoteResponse{}, "a.pdf"); err == nil {
		t.Fatal("expected error for missing result")
	}
	if _, err := transformRemote(remoteWire("Failed", ""), "a.pdf"); err == nil || !strings.Contains(err.Error(), "Failed") {
		t.Fatalf("expected status failure, got %v", err)
	}
	if _, err := transformRemote(remoteWire("Success", ""), "a.pdf"); err == nil {
		t.Fatal("expected error for empty output")
	}
	if _, err := transformRemote(remoteWire("Success", "not json"), "a.pdf"); err == nil {
		t.Fatal("expected error for malformed document")
	}
	// Items without text fail validation.
	if _, err := transformRemote(remoteWire("Success", `{"sections":[{"letter":"A","title":"T","items":[{"id":"x"}]}]}`), "a.pdf"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRemoteParser_Parse(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("files"); err != nil {
			t.Errorf("missing files part: %v", err)
		}
		resp := map[string]any{"message": map[string]any{"result": []map[string]any{{
			"status": "Success",
			"result": map[string]any{"output": map[string]string{"extracted": extractedDoc}},
		}}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewRemoteParser(srv.URL, "secret")
	parsed, err := p.Parse(context.Background(), []byte("%PDF-1.7 content"), "audit.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if len(parsed.Items) != 1 || parsed.Items[0].ID != "item_1" {
		t.Fatalf("unexpected result %+v", parsed)
	}
}

func TestRemoteParser_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "workflow not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewRemoteParser(srv.URL, "").Parse(context.Background(), []byte("x"), "a.pdf")
	if err == nil || !strings.Contains(err.Error(), fmt.Sprint(http.StatusNotFound)) {
		t.Fatalf("expected 404 error, got %v", err)
	}
}
