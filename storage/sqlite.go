package storage

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"eproba-editor/domain"
)

// SQLite keeps drafts in a local database file. Submissions are written to an
// outbox table instead of a queue.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS drafts (
	owner_id TEXT NOT NULL,
	id TEXT NOT NULL,
	kind TEXT NOT NULL,
	data TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (owner_id, id)
);
CREATE TABLE IF NOT EXISTS submission_outbox (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	idempotency_key TEXT NOT NULL,
	user_id TEXT NOT NULL,
	draft_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *SQLite) FetchDraft(ctx context.Context, ownerID, draftID string) (domain.Draft, error) {
	var data string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT data, version FROM drafts WHERE owner_id = ? AND id = ?;`, ownerID, draftID,
	).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Draft{}, ErrNotFound
	}
	if err != nil {
		return domain.Draft{}, err
	}
	var d domain.Draft
	if err := sonic.UnmarshalString(data, &d); err != nil {
		return domain.Draft{}, err
	}
	d.OwnerID = ownerID
	d.ID = draftID
	d.ETag = versionTag(version)
	return d, nil
}

func (s *SQLite) CreateDraft(ctx context.Context, d domain.Draft) (domain.Draft, error) {
	data, err := sonic.MarshalString(d)
	if err != nil {
		return domain.Draft{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (owner_id, id, kind, data, version, updated_at) VALUES (?, ?, ?, ?, 1, ?);`,
		d.OwnerID, d.ID, string(d.Kind), data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.Draft{}, ErrConcurrencyConflict
		}
		return domain.Draft{}, err
	}
	d.ETag = versionTag(1)
	return d, nil
}

// SaveDraft bumps the version column when d.ETag names the stored version.
func (s *SQLite) SaveDraft(ctx context.Context, d domain.Draft) (domain.Draft, error) {
	expected, err := parseVersionTag(d.ETag)
	if err != nil {
		return domain.Draft{}, ErrConcurrencyConflict
	}
	data, err := sonic.MarshalString(d)
	if err != nil {
		return domain.Draft{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET data = ?, kind = ?, version = version + 1, updated_at = ?
		 WHERE owner_id = ? AND id = ? AND version = ?;`,
		data, string(d.Kind), time.Now().UTC().Format(time.RFC3339Nano), d.OwnerID, d.ID, expected,
	)
	if err != nil {
		return domain.Draft{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Draft{}, err
	}
	if n == 0 {
		if _, err := s.FetchDraft(ctx, d.OwnerID, d.ID); err != nil {
			return domain.Draft{}, err
		}
		return domain.Draft{}, ErrConcurrencyConflict
	}
	d.ETag = versionTag(expected + 1)
	return d, nil
}

func (s *SQLite) DeleteDraft(ctx context.Context, ownerID, draftID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE owner_id = ? AND id = ?;`, ownerID, draftID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// EnqueueSubmission appends the submission to the outbox table.
func (s *SQLite) EnqueueSubmission(ctx context.Context, userID string, sub domain.Submission) error {
	payload, err := sonic.MarshalString(domain.SubmissionEnvelope{UserID: userID, Submission: sub})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submission_outbox (idempotency_key, user_id, draft_id, payload, created_at) VALUES (?, ?, ?, ?, ?);`,
		sub.IdempotencyKey, userID, sub.DraftID, payload, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Outbox returns the queued submissions in insertion order.
func (s *SQLite) Outbox(ctx context.Context) ([]domain.SubmissionEnvelope, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM submission_outbox ORDER BY seq;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SubmissionEnvelope
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var env domain.SubmissionEnvelope
		if err := sonic.UnmarshalString(payload, &env); err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, rows.Err()
}

func versionTag(v int64) string {
	return "v" + strconv.FormatInt(v, 10)
}

func parseVersionTag(tag string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(tag, "v"), 10, 64)
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
