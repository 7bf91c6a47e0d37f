package datastore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/aleister1102/pagewatch/internal/models"
)

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema is set up.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	storeLogger := logger.With().Str("component", "SQLiteStore").Logger()
	storeLogger.Info().Str("db_path", path).Msg("Initializing job database connection")

	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
	}

	dbInstance, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql.Open failed for %s: %w", path, err)
	}

	store := &SQLiteStore{
		db:     dbInstance,
		logger: storeLogger,
	}

	if err := store.initSchema(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	storeLogger.Info().Str("path", path).Msg("Database initialized and schema verified")
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		check_interval_seconds INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		last_check DATETIME,
		total_checks INTEGER NOT NULL DEFAULT 0,
		changes_detected INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	);
	CREATE TABLE IF NOT EXISTS change_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		change_type TEXT NOT NULL,
		description TEXT NOT NULL,
		details TEXT NOT NULL,
		annotation TEXT,
		detected_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_change_records_job_id ON change_records(job_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		s.logger.Error().Err(err).Msg("Failed to initialize schema")
		return err
	}
	return nil
}

// SaveJob inserts or updates a job row.
func (s *SQLiteStore) SaveJob(job models.Job) error {
	query := `INSERT INTO jobs (id, name, url, check_interval_seconds, status, created_at, last_check, total_checks, changes_detected, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			check_interval_seconds = excluded.check_interval_seconds,
			status = excluded.status,
			last_check = excluded.last_check,
			total_checks = excluded.total_checks,
			changes_detected = excluded.changes_detected,
			error_message = excluded.error_message`

	var lastCheck sql.NullTime
	if job.LastCheck != nil {
		lastCheck = sql.NullTime{Time: *job.LastCheck, Valid: true}
	}

	_, err := s.db.Exec(query,
		job.ID, job.Name, job.URL, int64(job.CheckInterval/time.Second),
		string(job.Status), job.CreatedAt, lastCheck,
		job.TotalChecks, job.ChangesDetected,
		sql.NullString{String: job.ErrorMessage, Valid: job.ErrorMessage != ""},
	)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to save job")
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// DeleteJob removes the job row and all of its change records.
func (s *SQLiteStore) DeleteJob(jobID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM change_records WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("failed to delete change records for job %s: %w", jobID, err)
	}
	if _, err := tx.Exec(`DELETE FROM jobs WHERE id = ?`, jobID); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", jobID, err)
	}
	return tx.Commit()
}

// LoadJobs returns every persisted job.
func (s *SQLiteStore) LoadJobs() ([]models.Job, error) {
	query := `SELECT id, name, url, check_interval_seconds, status, created_at, last_check, total_checks, changes_detected, error_message FROM jobs ORDER BY created_at`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var (
			job             models.Job
			intervalSeconds int64
			status          string
			lastCheck       sql.NullTime
			errorMessage    sql.NullString
		)
		if err := rows.Scan(&job.ID, &job.Name, &job.URL, &intervalSeconds, &status,
			&job.CreatedAt, &lastCheck, &job.TotalChecks, &job.ChangesDetected, &errorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		job.CheckInterval = time.Duration(intervalSeconds) * time.Second
		job.Status = models.JobStatus(status)
		if lastCheck.Valid {
			t := lastCheck.Time
			job.LastCheck = &t
		}
		job.ErrorMessage = errorMessage.String
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// AppendRecords persists change records for a job in detection order.
func (s *SQLiteStore) AppendRecords(jobID string, records []models.ChangeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin append transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO change_records (job_id, change_type, description, details, annotation, detected_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		details, err := json.Marshal(record.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal change details: %w", err)
		}

		var annotation sql.NullString
		if record.Annotation != nil {
			encoded, err := json.Marshal(record.Annotation)
			if err != nil {
				return fmt.Errorf("failed to marshal annotation: %w", err)
			}
			annotation = sql.NullString{String: string(encoded), Valid: true}
		}

		if _, err := stmt.Exec(jobID, string(record.Type), record.Description,
			string(details), annotation, record.DetectedAt); err != nil {
			return fmt.Errorf("failed to insert change record: %w", err)
		}
	}
	return tx.Commit()
}

// LoadRecords returns up to limit of the most recent records for a job, in
// chronological order. A non-positive limit loads every record.
func (s *SQLiteStore) LoadRecords(jobID string, limit int) ([]models.ChangeRecord, error) {
	query := `SELECT change_type, description, details, annotation, detected_at FROM change_records WHERE job_id = ? ORDER BY id DESC`
	args := []any{jobID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query change records: %w", err)
	}
	defer rows.Close()

	var records []models.ChangeRecord
	for rows.Next() {
		var (
			record     models.ChangeRecord
			changeType string
			details    string
			annotation sql.NullString
		)
		if err := rows.Scan(&changeType, &record.Description, &details, &annotation, &record.DetectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan change record row: %w", err)
		}
		record.Type = models.ChangeType(changeType)
		if err := json.Unmarshal([]byte(details), &record.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal change details: %w", err)
		}
		if annotation.Valid {
			record.Annotation = &models.Annotation{}
			if err := json.Unmarshal([]byte(annotation.String), record.Annotation); err != nil {
				return nil, fmt.Errorf("failed to unmarshal annotation: %w", err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows arrive newest-first; reverse into chronological order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}
