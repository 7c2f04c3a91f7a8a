// Package journal records emitted tips in Postgres.
package journal

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	tips "riftcoach/internal/tips/domain"
)

// Schema creates the journal table.
const Schema = `
CREATE TABLE IF NOT EXISTS tip_journal (
	id          TEXT PRIMARY KEY,
	rule_id     TEXT NOT NULL,
	module_id   TEXT NOT NULL,
	title       TEXT NOT NULL,
	body        TEXT NOT NULL DEFAULT '',
	severity    TEXT NOT NULL,
	game_time   DOUBLE PRECISION NOT NULL,
	metadata    JSONB NOT NULL,
	emitted_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS tip_journal_rule_emitted ON tip_journal (rule_id, emitted_at);
`

// Execer is satisfied by *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Entry is one journal row.
type Entry struct {
	ID        string
	RuleID    string
	ModuleID  string
	Title     string
	Body      string
	Severity  string
	GameTime  float64
	Metadata  json.RawMessage
	EmittedAt time.Time
}

// Repository writes journal entries.
type Repository struct {
	db Execer
}

// NewRepository constructs a journal repository.
func NewRepository(db Execer) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// EnsureSchema creates the table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("journal repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

// Insert writes an entry.
func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("journal repo: nil db")
	}
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.EmittedAt.IsZero() {
		entry.EmittedAt = time.Now().UTC()
	}
	if len(entry.Metadata) == 0 {
		entry.Metadata = json.RawMessage("{}")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO tip_journal (
	id, rule_id, module_id, title, body, severity, game_time, metadata, emitted_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)`, entry.ID, entry.RuleID, entry.ModuleID, entry.Title, entry.Body, entry.Severity, entry.GameTime,
		[]byte(entry.Metadata), entry.EmittedAt)
	return err
}

// EntryFromTip converts an emitted tip.
func EntryFromTip(tip tips.Tip) Entry {
	module, _ := tip.Metadata[tips.MetaModule].(string)
	metadata, err := json.Marshal(tip.Metadata)
	if err != nil {
		metadata = nil
	}
	return Entry{
		RuleID:    tip.ID,
		ModuleID:  module,
		Title:     tip.Title,
		Body:      tip.Body,
		Severity:  string(tip.Severity),
		GameTime:  tip.GameTime,
		Metadata:  metadata,
		EmittedAt: tip.EmittedAt,
	}
}

// NewID generates a random journal id.
func NewID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "tip-" + hex.EncodeToString(buf)
}
