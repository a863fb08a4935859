package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/kanmap/internal/app"
	"github.com/hylla/kanmap/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// board_meta keys.
const (
	metaSavedAt        = "saved_at"
	metaIsSynced       = "is_synced"
	metaMindMapVisible = "mindmap_visible"
	metaWidgetID       = "widget_id"
	metaUserID         = "user_id"
	metaRole           = "role"
	metaUsers          = "users_json"
	metaMeasures       = "measures_json"
	metaPassthrough    = "passthrough_json"
)

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a shared-cache memory database that lives until the repository
// is closed. Every call in one process sees the same database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS board_columns (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			x REAL NOT NULL DEFAULT 0,
			y REAL NOT NULL DEFAULT 0,
			width REAL NOT NULL DEFAULT 0,
			height REAL NOT NULL DEFAULT 0,
			is_done INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			view TEXT NOT NULL,
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT '',
			deadline TEXT,
			username TEXT NOT NULL DEFAULT '',
			parent_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			PRIMARY KEY(view, id)
		);`,
		`CREATE TABLE IF NOT EXISTS task_history (
			view TEXT NOT NULL,
			task_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			changed_by TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			changes_json TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY(view, task_id, seq),
			FOREIGN KEY(view, task_id) REFERENCES tasks(view, id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS board_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_view_position ON tasks(view, position);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// SaveState replaces the stored board in one transaction.
func (r *Repository) SaveState(ctx context.Context, st app.State) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"task_history", "tasks", "board_columns", "board_meta"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, c := range st.Columns {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO board_columns(id, position, title, x, y, width, height, is_done)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, i, c.Title, c.X, c.Y, c.Width, c.Height, boolToInt(c.IsDoneColumn)); err != nil {
			return fmt.Errorf("insert column %q: %w", c.ID, err)
		}
	}

	for _, view := range []app.View{app.ViewKanban, app.ViewMindMap} {
		for i, t := range st.Tasks(view) {
			if err = insertTask(ctx, tx, view, i, t); err != nil {
				return err
			}
		}
	}

	meta, err := encodeMeta(st)
	if err != nil {
		return err
	}
	for key, value := range meta {
		if _, err = tx.ExecContext(ctx, `INSERT INTO board_meta(key, value) VALUES(?, ?)`, key, value); err != nil {
			return fmt.Errorf("insert meta %q: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// LoadState reads the stored board, or app.ErrNotFound when nothing was saved.
func (r *Repository) LoadState(ctx context.Context) (app.State, error) {
	meta, err := r.loadMeta(ctx)
	if err != nil {
		return app.State{}, err
	}
	if _, ok := meta[metaSavedAt]; !ok {
		return app.State{}, app.ErrNotFound
	}

	var st app.State
	if err := decodeMeta(meta, &st); err != nil {
		return app.State{}, err
	}
	if st.Columns, err = r.listColumns(ctx); err != nil {
		return app.State{}, err
	}
	if st.KanbanTasks, err = r.listTasks(ctx, app.ViewKanban); err != nil {
		return app.State{}, err
	}
	if st.MindMapTasks, err = r.listTasks(ctx, app.ViewMindMap); err != nil {
		return app.State{}, err
	}
	return st, nil
}

// execerContext is the subset of *sql.Tx used by insert helpers.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

func insertTask(ctx context.Context, execer execerContext, view app.View, position int, t domain.Task) error {
	if _, err := execer.ExecContext(ctx, `
		INSERT INTO tasks(view, id, position, title, description, status, priority, deadline, username, parent_id, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(view), t.ID, position, t.Title, t.Description, t.Status, string(t.Priority),
		nullableDate(t.Deadline), t.Username, t.ParentID, ts(t.CreatedAt)); err != nil {
		return fmt.Errorf("insert task %q: %w", t.ID, err)
	}
	for seq, h := range t.History {
		changes, err := encodeChanges(h.Changes)
		if err != nil {
			return err
		}
		if _, err := execer.ExecContext(ctx, `
			INSERT INTO task_history(view, task_id, seq, updated_at, changed_by, note, changes_json)
			VALUES(?, ?, ?, ?, ?, ?, ?)
		`, string(view), t.ID, seq, ts(h.UpdatedAt), h.ChangedBy, h.Note, changes); err != nil {
			return fmt.Errorf("insert task history %q: %w", t.ID, err)
		}
	}
	return nil
}

func (r *Repository) loadMeta(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM board_meta`)
	if err != nil {
		return nil, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (r *Repository) listColumns(ctx context.Context) ([]domain.Column, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, x, y, width, height, is_done
		FROM board_columns
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var out []domain.Column
	for rows.Next() {
		var (
			c      domain.Column
			isDone int
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.X, &c.Y, &c.Width, &c.Height, &isDone); err != nil {
			return nil, err
		}
		c.IsDoneColumn = isDone != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) listTasks(ctx context.Context, view app.View) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, status, priority, deadline, username, parent_id, created_at
		FROM tasks
		WHERE view = ?
		ORDER BY position ASC
	`, string(view))
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	history, err := r.listHistory(ctx, view)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].History = history[out[i].ID]
	}
	return out, nil
}

func (r *Repository) listHistory(ctx context.Context, view app.View) (map[string][]domain.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, updated_at, changed_by, note, changes_json
		FROM task_history
		WHERE view = ?
		ORDER BY task_id ASC, seq ASC
	`, string(view))
	if err != nil {
		return nil, fmt.Errorf("query task history: %w", err)
	}
	defer rows.Close()

	out := map[string][]domain.HistoryEntry{}
	for rows.Next() {
		var (
			taskID, updatedRaw, changesRaw string
			h                              domain.HistoryEntry
		)
		if err := rows.Scan(&taskID, &updatedRaw, &h.ChangedBy, &h.Note, &changesRaw); err != nil {
			return nil, err
		}
		h.UpdatedAt = parseTS(updatedRaw)
		if h.Changes, err = decodeChanges(changesRaw); err != nil {
			return nil, err
		}
		out[taskID] = append(out[taskID], h)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask scans one tasks row.
func scanTask(s scanner) (domain.Task, error) {
	var (
		t           domain.Task
		priorityRaw string
		deadlineRaw sql.NullString
		createdRaw  string
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &priorityRaw, &deadlineRaw, &t.Username, &t.ParentID, &createdRaw); err != nil {
		return domain.Task{}, err
	}
	t.Priority = domain.Priority(priorityRaw)
	if deadlineRaw.Valid {
		d, err := domain.ParseDeadline(deadlineRaw.String)
		if err != nil {
			return domain.Task{}, fmt.Errorf("task %q: %w", t.ID, err)
		}
		t.Deadline = d
	}
	t.CreatedAt = parseTS(createdRaw)
	return t, nil
}

type storedChange struct {
	Kind      string `json:"kind"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	FromLabel string `json:"from_label,omitempty"`
	ToLabel   string `json:"to_label,omitempty"`
}

func encodeChanges(changes []domain.Change) (string, error) {
	stored := make([]storedChange, 0, len(changes))
	for _, c := range changes {
		stored = append(stored, storedChange{
			Kind:      string(c.Kind),
			From:      c.From,
			To:        c.To,
			FromLabel: c.FromLabel,
			ToLabel:   c.ToLabel,
		})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encode history changes: %w", err)
	}
	return string(raw), nil
}

func decodeChanges(raw string) ([]domain.Change, error) {
	var stored []storedChange
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode history changes: %w", err)
	}
	if len(stored) == 0 {
		return nil, nil
	}
	out := make([]domain.Change, 0, len(stored))
	for _, s := range stored {
		out = append(out, domain.Change{
			Kind:      domain.ChangeKind(s.Kind),
			From:      s.From,
			To:        s.To,
			FromLabel: s.FromLabel,
			ToLabel:   s.ToLabel,
		})
	}
	return out, nil
}

func encodeMeta(st app.State) (map[string]string, error) {
	meta := map[string]string{
		metaSavedAt:        ts(time.Now()),
		metaIsSynced:       strconv.FormatBool(st.IsSynced),
		metaMindMapVisible: strconv.FormatBool(st.MindMapVisible),
		metaWidgetID:       st.Host.WidgetID,
		metaUserID:         st.Host.UserID,
		metaRole:           st.Host.Role,
	}
	if st.Host.Users != nil {
		raw, err := json.Marshal(st.Host.Users)
		if err != nil {
			return nil, fmt.Errorf("encode users: %w", err)
		}
		meta[metaUsers] = string(raw)
	}
	if st.Host.Measures != nil {
		meta[metaMeasures] = string(st.Host.Measures)
	}
	if st.Host.Passthrough != nil {
		raw, err := json.Marshal(st.Host.Passthrough)
		if err != nil {
			return nil, fmt.Errorf("encode passthrough: %w", err)
		}
		meta[metaPassthrough] = string(raw)
	}
	return meta, nil
}

func decodeMeta(meta map[string]string, st *app.State) error {
	st.IsSynced, _ = strconv.ParseBool(meta[metaIsSynced])
	st.MindMapVisible, _ = strconv.ParseBool(meta[metaMindMapVisible])
	st.Host.WidgetID = meta[metaWidgetID]
	st.Host.UserID = meta[metaUserID]
	st.Host.Role = meta[metaRole]
	if raw, ok := meta[metaUsers]; ok {
		if err := json.Unmarshal([]byte(raw), &st.Host.Users); err != nil {
			return fmt.Errorf("decode users: %w", err)
		}
	}
	if raw, ok := meta[metaMeasures]; ok {
		st.Host.Measures = json.RawMessage(raw)
	}
	if raw, ok := meta[metaPassthrough]; ok {
		if err := json.Unmarshal([]byte(raw), &st.Host.Passthrough); err != nil {
			return fmt.Errorf("decode passthrough: %w", err)
		}
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func nullableDate(d *time.Time) any {
	if d == nil {
		return nil
	}
	return domain.FormatDeadline(d)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
