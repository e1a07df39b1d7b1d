package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/barotrace/internal/domain"
)

//go:embed schema.sql
var schema string

// Store records pipeline runs and what they produced
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records the start of a command and returns the new run
func (s *Store) StartRun(command string, args []string) (*domain.Run, error) {
	id := uuid.New().String()
	now := time.Now()
	joined := strings.Join(args, " ")

	_, err := s.db.Exec(
		"INSERT INTO runs (id, command, args, started_at) VALUES (?, ?, ?, ?)",
		id, command, joined, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return &domain.Run{
		ID:        id,
		Command:   command,
		Args:      joined,
		StartedAt: now,
	}, nil
}

// FinishRun marks a run as finished, keeping runErr's message if any
func (s *Store) FinishRun(id string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := s.db.Exec(
		"UPDATE runs SET finished_at = ?, error = ? WHERE id = ?",
		time.Now(), msg, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordBuckets stores the bucket files written by a run
func (s *Store) RecordBuckets(runID string, files []domain.BucketFile) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO buckets (run_id, label, date, lines, path) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare bucket insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.Exec(runID, f.Label, f.Date, f.Lines, f.Path); err != nil {
			return fmt.Errorf("insert bucket: %w", err)
		}
	}
	return tx.Commit()
}

// RecordGroundTruth stores the ground truth chosen for a label
func (s *Store) RecordGroundTruth(runID string, m domain.GroundTruthMark) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO ground_truths (run_id, label, date, file, elapsed_ms) VALUES (?, ?, ?, ?, ?)",
		runID, m.Label, m.Date, m.File, m.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("insert ground truth: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID with its buckets and ground truths
func (s *Store) GetRun(id string) (*domain.Run, error) {
	var run domain.Run
	var finished sql.NullTime
	err := s.db.QueryRow(
		"SELECT id, command, args, started_at, finished_at, error FROM runs WHERE id = ?",
		id,
	).Scan(&run.ID, &run.Command, &run.Args, &run.StartedAt, &finished, &run.Error)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}

	run.Buckets, err = s.runBuckets(id)
	if err != nil {
		return nil, err
	}
	run.GroundTruths, err = s.runGroundTruths(id)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// FindRun resolves a unique run ID prefix
func (s *Store) FindRun(prefix string) (*domain.Run, error) {
	rows, err := s.db.Query("SELECT id FROM runs WHERE id LIKE ? LIMIT 2", prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}

	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("run not found: %s: %w", prefix, sql.ErrNoRows)
	case 1:
		return s.GetRun(ids[0])
	}
	return nil, fmt.Errorf("run prefix is ambiguous: %s", prefix)
}

// ListRuns returns the most recent runs
func (s *Store) ListRuns(limit int) ([]domain.Run, error) {
	rows, err := s.db.Query(
		"SELECT id, command, args, started_at, finished_at, error FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var r domain.Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Command, &r.Args, &r.StartedAt, &finished, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// ListLabels summarizes the buckets of the latest run that wrote any
func (s *Store) ListLabels() ([]domain.LabelSummary, error) {
	rows, err := s.db.Query(`
		SELECT b.label, COUNT(*), SUM(b.lines)
		FROM buckets b
		WHERE b.run_id = (
			SELECT r.id FROM runs r
			JOIN buckets x ON x.run_id = r.id
			ORDER BY r.started_at DESC LIMIT 1
		)
		GROUP BY b.label
		ORDER BY b.label
	`)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var labels []domain.LabelSummary
	for rows.Next() {
		var l domain.LabelSummary
		if err := rows.Scan(&l.Label, &l.Dates, &l.Lines); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}

	return labels, rows.Err()
}

func (s *Store) runBuckets(runID string) ([]domain.BucketFile, error) {
	rows, err := s.db.Query(
		"SELECT label, date, lines, path FROM buckets WHERE run_id = ? ORDER BY label, date",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run buckets: %w", err)
	}
	defer rows.Close()

	var files []domain.BucketFile
	for rows.Next() {
		var f domain.BucketFile
		if err := rows.Scan(&f.Label, &f.Date, &f.Lines, &f.Path); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		files = append(files, f)
	}

	return files, rows.Err()
}

func (s *Store) runGroundTruths(runID string) ([]domain.GroundTruthMark, error) {
	rows, err := s.db.Query(
		"SELECT label, date, file, elapsed_ms FROM ground_truths WHERE run_id = ? ORDER BY label",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run ground truths: %w", err)
	}
	defer rows.Close()

	var marks []domain.GroundTruthMark
	for rows.Next() {
		var m domain.GroundTruthMark
		if err := rows.Scan(&m.Label, &m.Date, &m.File, &m.ElapsedMs); err != nil {
			return nil, fmt.Errorf("scan ground truth: %w", err)
		}
		marks = append(marks, m)
	}

	return marks, rows.Err()
}
