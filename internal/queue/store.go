package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const dbFileName = "jobs.db"

// Store persists jobs for a single run.
type Store struct {
	db   *sql.DB
	path string

	// mu serializes claim and transition, which read then write. SQLite
	// handles durability; this keeps two workers from claiming one job.
	mu sync.Mutex
}

// Open creates or opens the run database inside dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}
	path := filepath.Join(dir, dbFileName)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply queue schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Destroy closes the store and removes the database files from disk.
func (s *Store) Destroy() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(s.path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove queue database: %w", err)
		}
	}
	return nil
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.path
}

// Seed inserts one pending job per URL, preserving input order. The slice
// must already be normalized and deduplicated.
func (s *Store) Seed(ctx context.Context, urls []string) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	jobs := make([]*Job, 0, len(urls))
	for i, url := range urls {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (position, source_url, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			i, url, string(StatusPending), now, now)
		if err != nil {
			return nil, fmt.Errorf("seed job %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("seed job %d: %w", i, err)
		}
		created, _ := time.Parse(time.RFC3339Nano, now)
		jobs = append(jobs, &Job{
			ID:        id,
			Position:  i,
			SourceURL: url,
			Status:    StatusPending,
			CreatedAt: created,
			UpdatedAt: created,
		})
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit seed: %w", err)
	}
	return jobs, nil
}

const jobColumns = `id, position, source_url, status, metadata_json, transcript_json,
	error_stage, error_message, error_retriable, download_attempts,
	transcribe_attempts, temp_audio_path, created_at, updated_at`

// GetByID returns a job or nil when no such job exists.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// List returns every job in insertion order.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListByStatus returns jobs in the given statuses, in insertion order.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := ""
	args := make([]any, 0, len(statuses))
	for i, status := range statuses {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, string(status))
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status IN (`+placeholders+`) ORDER BY position`, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs by status: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Stats returns the number of jobs in each status. Every known status is
// present in the map, zero when empty, so callers can sum without nil checks.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		stats[status] = 0
	}
	for rows.Next() {
		var raw string
		var count int
		if err := rows.Scan(&raw, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		if status, ok := ParseStatus(raw); ok {
			stats[status] = count
		}
	}
	return stats, rows.Err()
}

// Update persists in-stage mutations: attempts, temp audio path, metadata.
// It refuses to change status; use Transition for lifecycle moves.
func (s *Store) Update(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, job.ID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("update job %d: not found", job.ID)
	}
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.ID, err)
	}
	if current != string(job.Status) {
		return fmt.Errorf("update job %d: status change %s -> %s requires Transition", job.ID, current, job.Status)
	}
	return s.persist(ctx, job)
}

func (s *Store) persist(ctx context.Context, job *Job) error {
	metadataJSON, err := marshalNullable(job.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata for job %d: %w", job.ID, err)
	}
	transcriptJSON, err := marshalNullable(job.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript for job %d: %w", job.ID, err)
	}
	errorStage, errorMessage := "", ""
	errorRetriable := 0
	if job.Error != nil {
		errorStage = string(job.Error.Stage)
		errorMessage = job.Error.Message
		if job.Error.Retriable {
			errorRetriable = 1
		}
	}
	job.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		UPDATE jobs SET
			status = ?, metadata_json = ?, transcript_json = ?,
			error_stage = ?, error_message = ?, error_retriable = ?,
			download_attempts = ?, transcribe_attempts = ?,
			temp_audio_path = ?, updated_at = ?
		WHERE id = ?`,
		string(job.Status), metadataJSON, transcriptJSON,
		errorStage, errorMessage, errorRetriable,
		job.DownloadAttempts, job.TranscribeAttempts,
		job.TempAudioPath, job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID)
	if err != nil {
		return fmt.Errorf("persist job %d: %w", job.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job            Job
		statusRaw      string
		metadataJSON   sql.NullString
		transcriptJSON sql.NullString
		errorStage     sql.NullString
		errorMessage   sql.NullString
		errorRetriable int
		createdRaw     string
		updatedRaw     string
	)
	err := row.Scan(
		&job.ID, &job.Position, &job.SourceURL, &statusRaw,
		&metadataJSON, &transcriptJSON,
		&errorStage, &errorMessage, &errorRetriable,
		&job.DownloadAttempts, &job.TranscribeAttempts,
		&job.TempAudioPath, &createdRaw, &updatedRaw)
	if err != nil {
		return nil, err
	}
	status, ok := ParseStatus(statusRaw)
	if !ok {
		return nil, fmt.Errorf("job %d has unknown status %q", job.ID, statusRaw)
	}
	job.Status = status
	if metadataJSON.Valid && metadataJSON.String != "" {
		var metadata Metadata
		if err := json.Unmarshal([]byte(metadataJSON.String), &metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for job %d: %w", job.ID, err)
		}
		job.Metadata = &metadata
	}
	if transcriptJSON.Valid && transcriptJSON.String != "" {
		var transcript Transcript
		if err := json.Unmarshal([]byte(transcriptJSON.String), &transcript); err != nil {
			return nil, fmt.Errorf("decode transcript for job %d: %w", job.ID, err)
		}
		job.Transcript = &transcript
	}
	if errorMessage.Valid && errorMessage.String != "" {
		job.Error = &ErrorRecord{
			Stage:     Stage(errorStage.String),
			Message:   errorMessage.String,
			Retriable: errorRetriable == 1,
		}
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
		return nil, fmt.Errorf("parse created_at for job %d: %w", job.ID, err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedRaw); err != nil {
		return nil, fmt.Errorf("parse updated_at for job %d: %w", job.ID, err)
	}
	return &job, nil
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func marshalNullable(value any) (sql.NullString, error) {
	switch v := value.(type) {
	case *Metadata:
		if v == nil {
			return sql.NullString{}, nil
		}
	case *Transcript:
		if v == nil {
			return sql.NullString{}, nil
		}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}
