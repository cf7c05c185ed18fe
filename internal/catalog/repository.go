package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"
)

type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	UpdateRunStatus(ctx context.Context, id, status, errorMsg string) error

	ListRequestLogs(ctx context.Context, runID string) ([]*RequestLog, error)

	SaveWorkFiles(ctx context.Context, runID string, logs []*RequestLog, files []*WorkFile) error
	GetWorkFile(ctx context.Context, id string) (*WorkFile, error)
	ListWorkFiles(ctx context.Context, runID string) ([]*WorkFile, error)
	GetMarks(ctx context.Context, workFileID string) ([]Mark, error)
	ListCompletedMarks(ctx context.Context) ([]StoredMark, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const runColumns = `id, status, output_type, manifest_path, video_path, work_file_count, range_count, error, created_at, updated_at`

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Status, run.OutputType, run.ManifestPath, nullString(run.VideoPath),
		run.WorkFileCount, run.RangeCount, nullString(run.Error),
		run.CreatedAt.Format(time.RFC3339), run.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
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

func scanRun(s scanner) (*Run, error) {
	var run Run
	var videoPath, errMsg sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&run.ID, &run.Status, &run.OutputType, &run.ManifestPath, &videoPath,
		&run.WorkFileCount, &run.RangeCount, &errMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	run.VideoPath = videoPath.String
	run.Error = errMsg.String
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &run, nil
}

func (r *SQLiteRepository) UpdateRunStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) ListRequestLogs(ctx context.Context, runID string) ([]*RequestLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, user, machine, file_user, file_date, submitted_date, created_at
		FROM request_logs WHERE run_id = ? ORDER BY created_at, rowid
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		var l RequestLog
		var createdAt string
		if err := rows.Scan(&l.ID, &l.RunID, &l.User, &l.Machine, &l.FileUser, &l.FileDate, &l.SubmittedDate, &createdAt); err != nil {
			return nil, err
		}
		l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// SaveWorkFiles stores the request logs, work files with their marks and the
// run's counts in one transaction. Nothing is kept if any insert fails.
func (r *SQLiteRepository) SaveWorkFiles(ctx context.Context, runID string, logs []*RequestLog, files []*WorkFile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, l := range logs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO request_logs (id, run_id, user, machine, file_user, file_date, submitted_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, l.ID, l.RunID, l.User, l.Machine, l.FileUser, l.FileDate, l.SubmittedDate, l.CreatedAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert request log: %w", err)
		}
	}

	ranges := 0
	for _, wf := range files {
		if err := insertWorkFile(ctx, tx, wf); err != nil {
			return fmt.Errorf("insert work file %s: %w", filepath.Base(wf.Path), err)
		}
		ranges += len(wf.Marks)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE runs SET work_file_count = ?, range_count = ?, updated_at = ? WHERE id = ?
	`, len(files), ranges, time.Now().UTC().Format(time.RFC3339), runID)
	if err != nil {
		return fmt.Errorf("update run counts: %w", err)
	}
	return tx.Commit()
}

func insertWorkFile(ctx context.Context, tx *sql.Tx, wf *WorkFile) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO work_files (id, run_id, path, kind, file_user, file_date, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, wf.ID, wf.RunID, wf.Path, wf.Kind, wf.FileUser, wf.FileDate, wf.Position, wf.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO marks (work_file_id, seq, line, location, first_frame, last_frame)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range wf.Marks {
		if _, err := stmt.ExecContext(ctx, wf.ID, i, m.Line, m.Location, m.Range.First, m.Range.Last); err != nil {
			return fmt.Errorf("insert mark %d: %w", i, err)
		}
	}
	return nil
}

const workFileColumns = `id, run_id, path, kind, file_user, file_date, position, created_at`

func scanWorkFile(s scanner) (*WorkFile, error) {
	var wf WorkFile
	var createdAt string
	if err := s.Scan(&wf.ID, &wf.RunID, &wf.Path, &wf.Kind, &wf.FileUser, &wf.FileDate, &wf.Position, &createdAt); err != nil {
		return nil, err
	}
	wf.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &wf, nil
}

// GetWorkFile returns the work file without its marks.
func (r *SQLiteRepository) GetWorkFile(ctx context.Context, id string) (*WorkFile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workFileColumns+` FROM work_files WHERE id = ?`, id)
	wf, err := scanWorkFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return wf, err
}

func (r *SQLiteRepository) ListWorkFiles(ctx context.Context, runID string) ([]*WorkFile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+workFileColumns+` FROM work_files WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*WorkFile
	for rows.Next() {
		wf, err := scanWorkFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, wf)
	}
	return files, rows.Err()
}

func (r *SQLiteRepository) GetMarks(ctx context.Context, workFileID string) ([]Mark, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, line, location, first_frame, last_frame
		FROM marks WHERE work_file_id = ? ORDER BY seq
	`, workFileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMarks(rows)
}

// ListCompletedMarks returns every mark saved by a completed run, ordered by
// run, then work file, then sequence.
func (r *SQLiteRepository) ListCompletedMarks(ctx context.Context) ([]StoredMark, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT w.path, m.seq, m.line, m.location, m.first_frame, m.last_frame
		FROM marks m
		JOIN work_files w ON w.id = m.work_file_id
		JOIN runs r ON r.id = w.run_id
		WHERE r.status = ?
		ORDER BY r.created_at, r.rowid, w.position, m.seq
	`, RunStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []StoredMark
	for rows.Next() {
		var m StoredMark
		if err := rows.Scan(&m.WorkFilePath, &m.Seq, &m.Line, &m.Location, &m.Range.First, &m.Range.Last); err != nil {
			return nil, err
		}
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

func scanMarks(rows *sql.Rows) ([]Mark, error) {
	var marks []Mark
	for rows.Next() {
		var m Mark
		if err := rows.Scan(&m.Seq, &m.Line, &m.Location, &m.Range.First, &m.Range.Last); err != nil {
			return nil, err
		}
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
