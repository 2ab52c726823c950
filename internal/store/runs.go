package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/omeister/jpegbatch/internal/domain"
)

func (s *RunStore) SaveRun(run *domain.Run) error {
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	query := `INSERT OR REPLACE INTO runs (id, started_at, finished_at, total, written, rejected, failed, report)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query,
		run.ID,
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
		run.Report.Total,
		len(run.Report.Written),
		len(run.Report.Rejected),
		len(run.Report.Failed),
		reportJSON,
	)
	return err
}

// Runs returns every recorded run, oldest first. KSUIDs sort
// chronologically, so ordering by id is ordering by start time.
func (s *RunStore) Runs() ([]*domain.Run, error) {
	rows, err := s.db.Query(`SELECT id, started_at, finished_at, report FROM runs ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Run fetches a single run by id. Returns nil, nil when not found.
func (s *RunStore) Run(id string) (*domain.Run, error) {
	row := s.db.QueryRow(`SELECT id, started_at, finished_at, report FROM runs WHERE id = ? LIMIT 1`, id)

	run, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch run %s: %w", id, err)
	}

	return run, nil
}

func scanRun(scan func(dest ...any) error) (*domain.Run, error) {
	run := &domain.Run{}
	var startedAt, finishedAt int64
	var reportJSON string

	if err := scan(&run.ID, &startedAt, &finishedAt, &reportJSON); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(reportJSON), &run.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report for %s: %w", run.ID, err)
	}

	run.StartedAt = time.Unix(startedAt, 0)
	run.FinishedAt = time.Unix(finishedAt, 0)

	return run, nil
}
