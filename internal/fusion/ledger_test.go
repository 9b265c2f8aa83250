package fusion

import (
	"path/filepath"
	"testing"

	"github.com/checkfuse/checkfuse/internal/model"
)

func TestLedger_LastWriteWins(t *testing.T) {
	l := NewLedger()

	l.Accept("s1")
	l.Reject("s1")
	d, ok := l.Get("s1")
	if !ok || d.Status != model.DecisionRejected {
		t.Fatalf("expected rejected, got %+v", d)
	}

	if err := l.Edit("s1", "  custom wording  "); err != nil {
		t.Fatal(err)
	}
	d, _ = l.Get("s1")
	if d.Status != model.DecisionEdited || d.CustomText != "custom wording" {
		t.Fatalf("expected trimmed edited decision, got %+v", d)
	}
	if l.Len() != 1 {
		t.Fatalf("expected one decision, got %d", l.Len())
	}
}

func TestLedger_EditEmptyText(t *testing.T) {
	l := NewLedger()
	if err := l.Edit("s1", "   "); err == nil {
		t.Fatal("expected error for blank text")
	}
	if _, ok := l.Get("s1"); ok {
		t.Fatal("failed edit must not record a decision")
	}
}

func TestLedger_Clear(t *testing.T) {
	l := NewLedger()
	l.Accept("s1")
	l.Clear("s1")
	if _, ok := l.Get("s1"); ok {
		t.Fatal("expected decision removed")
	}
	// Clearing an unknown id is a no-op.
	l.Clear("nope")
}

func TestLedger_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions", "pair.json")

	l := NewLedger()
	l.Accept("s1")
	l.Reject("s2")
	if err := l.Edit("s3", "merged"); err != nil {
		t.Fatal(err)
	}
	if err := l.SaveFile(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadLedgerFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 3 {
		t.Fatalf("expected 3 decisions, got %d", loaded.Len())
	}
	d, _ := loaded.Get("s3")
	if d.Status != model.DecisionEdited || d.CustomText != "merged" {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestLoadLedgerFile_Missing(t *testing.T) {
	l, err := LoadLedgerFile(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d", l.Len())
	}
}
