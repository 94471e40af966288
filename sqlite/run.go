package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/dumpit"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var (
	_ dumpit.RunWriter  = (*RunStore)(nil)
	_ dumpit.RunService = (*RunStore)(nil)
)

// RunStore archives runs with their pages and content blocks.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// fingerprint returns the hex xxHash of a page's encoded blocks.
func fingerprint(payloads []string) string {
	d := xxhash.New()
	for _, p := range payloads {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, d.Sum64())
	return hex.EncodeToString(b)
}

// WriteRun stores run in a single transaction. A run without an ID gets a
// generated one.
func (s *RunStore) WriteRun(ctx context.Context, run *dumpit.Run) error {
	if run == nil || run.Result == nil {
		return dumpit.Errorf(dumpit.EINVALID, "run has no result")
	}
	if run.Seed == "" {
		return dumpit.Errorf(dumpit.EINVALID, "run seed required")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seed, mode, discovered, failed, total_pages, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Seed, string(run.Mode), run.Discovered, run.Failed, run.Result.TotalPages,
		formatTime(run.StartedAt), formatTime(run.FinishedAt))
	if err != nil {
		return err
	}

	for i, page := range run.Result.Pages {
		if err := insertPage(ctx, tx, run.ID, i, page); err != nil {
			return fmt.Errorf("storing page %s: %w", page.URL, err)
		}
	}

	return tx.Commit()
}

func insertPage(ctx context.Context, tx *sql.Tx, runID string, position int, page *dumpit.Page) error {
	payloads := make([]string, len(page.Blocks))
	for i, b := range page.Blocks {
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		payloads[i] = string(data)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO pages (run_id, position, url, title, meta_title, meta_description, total_words, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, position, page.URL, page.Title, page.MetaTitle, page.MetaDescription,
		page.TotalWords, fingerprint(payloads))
	if err != nil {
		return err
	}
	pageID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for i, b := range page.Blocks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO blocks (page_id, position, type, payload) VALUES (?, ?, ?, ?)
		`, pageID, i, string(b.Type()), payloads[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// FindRunByID retrieves a run's metadata. The returned run has no Result;
// use FindPages to load its pages.
func (s *RunStore) FindRunByID(ctx context.Context, id string) (*dumpit.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seed, mode, discovered, failed, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dumpit.Errorf(dumpit.ENOTFOUND, "run not found")
	}
	return run, err
}

// FindRuns retrieves runs matching the filter, newest first.
func (s *RunStore) FindRuns(ctx context.Context, filter dumpit.RunFilter) ([]*dumpit.Run, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, seed, mode, discovered, failed, started_at, finished_at FROM runs WHERE 1=1")
	if filter.Seed != nil {
		query.WriteString(" AND seed = ?")
		args = append(args, *filter.Seed)
	}
	query.WriteString(" ORDER BY started_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*dumpit.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*dumpit.Run, error) {
	var run dumpit.Run
	var mode, startedAt, finishedAt string
	if err := row.Scan(&run.ID, &run.Seed, &mode, &run.Discovered, &run.Failed, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.Mode = dumpit.Mode(mode)

	var err error
	if run.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindPages reads back the pages of a run in their original order.
func (s *RunStore) FindPages(ctx context.Context, runID string) ([]*dumpit.Page, error) {
	if _, err := s.FindRunByID(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.url, p.title, p.meta_title, p.meta_description, p.total_words, b.payload
		FROM pages p
		LEFT JOIN blocks b ON b.page_id = p.id
		WHERE p.run_id = ?
		ORDER BY p.position ASC, b.position ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages := []*dumpit.Page{}
	var current *dumpit.Page
	var currentID int64
	for rows.Next() {
		var id int64
		var page dumpit.Page
		var payload sql.NullString
		if err := rows.Scan(&id, &page.URL, &page.Title, &page.MetaTitle, &page.MetaDescription,
			&page.TotalWords, &payload); err != nil {
			return nil, err
		}
		if current == nil || id != currentID {
			page.Blocks = []dumpit.Block{}
			current, currentID = &page, id
			pages = append(pages, current)
		}
		if !payload.Valid {
			continue
		}
		b, err := dumpit.UnmarshalBlock([]byte(payload.String))
		if err != nil {
			return nil, fmt.Errorf("decoding block of %s: %w", current.URL, err)
		}
		current.Blocks = append(current.Blocks, b)
	}
	return pages, rows.Err()
}

// DeleteRun permanently removes a run with its pages and blocks.
func (s *RunStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return dumpit.Errorf(dumpit.ENOTFOUND, "run not found")
	}
	return nil
}
