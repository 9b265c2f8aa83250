package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/checkfuse/checkfuse/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checklists (
		id             TEXT PRIMARY KEY,
		file_hash      TEXT NOT NULL UNIQUE,
		file_name      TEXT NOT NULL,
		parsed_content TEXT NOT NULL,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_checklists_created ON checklists(created_at DESC);

	CREATE TABLE IF NOT EXISTS fusion_suggestions (
		id               TEXT PRIMARY KEY,
		checklist1_id    TEXT NOT NULL REFERENCES checklists(id),
		checklist2_id    TEXT NOT NULL REFERENCES checklists(id),
		item1_id         TEXT NOT NULL,
		item2_id         TEXT NOT NULL,
		suggested_text   TEXT NOT NULL,
		similarity_score REAL NOT NULL,
		rank             INTEGER NOT NULL,
		created_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_suggestions_pair
		ON fusion_suggestions(checklist1_id, checklist2_id, rank);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) SaveChecklist(ctx context.Context, fileHash, fileName string, parsed model.ParsedChecklist) (*model.Checklist, error) {
	if err := parsed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid checklist: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Content-addressed: one record per distinct file content.
	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM checklists WHERE file_hash = ?`, fileHash).Scan(&existingID)
	if err == nil {
		tx.Rollback()
		return s.GetChecklist(ctx, existingID)
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now().UTC()
	id := s.newID()
	content, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("marshal parsed content: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checklists (id, file_hash, file_name, parsed_content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, fileHash, fileName, string(content), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert checklist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Checklist{
		ID:        id,
		FileHash:  fileHash,
		FileName:  fileName,
		Parsed:    parsed,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetChecklist(ctx context.Context, id string) (*model.Checklist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_hash, file_name, parsed_content, created_at
		 FROM checklists WHERE id = ?`, id)
	return scanChecklist(row)
}

func (s *SQLiteStore) GetChecklistByHash(ctx context.Context, fileHash string) (*model.Checklist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_hash, file_name, parsed_content, created_at
		 FROM checklists WHERE file_hash = ?`, fileHash)
	return scanChecklist(row)
}

func (s *SQLiteStore) ListChecklists(ctx context.Context, limit int) ([]model.Checklist, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_hash, file_name, parsed_content, created_at
		 FROM checklists ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checklists []model.Checklist
	for rows.Next() {
		c, err := scanChecklist(rows)
		if err != nil {
			return nil, err
		}
		checklists = append(checklists, *c)
	}
	return checklists, rows.Err()
}

func (s *SQLiteStore) FindSuggestions(ctx context.Context, checklistAID, checklistBID string) ([]model.FusionSuggestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, checklist1_id, checklist2_id, item1_id, item2_id,
		        suggested_text, similarity_score, created_at
		 FROM fusion_suggestions
		 WHERE checklist1_id = ? AND checklist2_id = ?
		 ORDER BY rank ASC`, checklistAID, checklistBID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []model.FusionSuggestion
	for rows.Next() {
		sug, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, *sug)
	}
	return suggestions, rows.Err()
}

func (s *SQLiteStore) SaveSuggestions(ctx context.Context, checklistAID, checklistBID string, candidates []model.FusionCandidate) ([]model.FusionSuggestion, error) {
	return s.saveSuggestions(ctx, checklistAID, checklistBID, candidates, false)
}

func (s *SQLiteStore) ReplaceSuggestions(ctx context.Context, checklistAID, checklistBID string, candidates []model.FusionCandidate) ([]model.FusionSuggestion, error) {
	return s.saveSuggestions(ctx, checklistAID, checklistBID, candidates, true)
}

// saveSuggestions runs check-then-save inside a single transaction so a
// concurrent request for the same pair cannot insert duplicate rows.
func (s *SQLiteStore) saveSuggestions(ctx context.Context, checklistAID, checklistBID string, candidates []model.FusionCandidate, replace bool) ([]model.FusionSuggestion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if replace {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM fusion_suggestions WHERE checklist1_id = ? AND checklist2_id = ?`,
			checklistAID, checklistBID)
		if err != nil {
			return nil, fmt.Errorf("delete pair rows: %w", err)
		}
	} else {
		var count int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM fusion_suggestions WHERE checklist1_id = ? AND checklist2_id = ?`,
			checklistAID, checklistBID).Scan(&count)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			tx.Rollback()
			return s.FindSuggestions(ctx, checklistAID, checklistBID)
		}
	}

	now := time.Now().UTC()
	suggestions := make([]model.FusionSuggestion, 0, len(candidates))
	for rank, c := range candidates {
		sug := model.FusionSuggestion{
			ID:              s.newID(),
			ChecklistAID:    checklistAID,
			ChecklistBID:    checklistBID,
			ItemAID:         c.ItemA.ID,
			ItemBID:         c.ItemB.ID,
			SuggestedText:   c.FusedText,
			SimilarityScore: c.Similarity,
			CreatedAt:       now,
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO fusion_suggestions
			 (id, checklist1_id, checklist2_id, item1_id, item2_id, suggested_text, similarity_score, rank, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sug.ID, sug.ChecklistAID, sug.ChecklistBID, sug.ItemAID, sug.ItemBID,
			sug.SuggestedText, sug.SimilarityScore, rank, now.Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("insert suggestion: %w", err)
		}
		suggestions = append(suggestions, sug)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (s *SQLiteStore) GetSuggestion(ctx context.Context, id string) (*model.FusionSuggestion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, checklist1_id, checklist2_id, item1_id, item2_id,
		        suggested_text, similarity_score, created_at
		 FROM fusion_suggestions WHERE id = ?`, id)
	return scanSuggestion(row)
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checklists`).Scan(&st.Checklists); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fusion_suggestions`).Scan(&st.Suggestions); err != nil {
		return nil, err
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (SELECT DISTINCT checklist1_id, checklist2_id FROM fusion_suggestions)`).
		Scan(&st.SuggestionPairs)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChecklist(r rowScanner) (*model.Checklist, error) {
	var c model.Checklist
	var content, createdAt string
	if err := r.Scan(&c.ID, &c.FileHash, &c.FileName, &content, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(content), &c.Parsed); err != nil {
		return nil, fmt.Errorf("unmarshal parsed content: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func scanSuggestion(r rowScanner) (*model.FusionSuggestion, error) {
	var sug model.FusionSuggestion
	var createdAt string
	err := r.Scan(&sug.ID, &sug.ChecklistAID, &sug.ChecklistBID, &sug.ItemAID, &sug.ItemBID,
		&sug.SuggestedText, &sug.SimilarityScore, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sug.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &sug, nil
}
