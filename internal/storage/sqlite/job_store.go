package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

// JobStore implements outreach.JobRepository on SQLite.
type JobStore struct {
	db  *sql.DB
	ids outreach.IDGenerator
}

// NewJobStore wraps an opened database; ids assigns job ids on first save.
func NewJobStore(db *sql.DB, ids outreach.IDGenerator) *JobStore {
	return &JobStore{db: db, ids: ids}
}

// Save writes the job and its place list in one transaction.
func (s *JobStore) Save(ctx context.Context, job outreach.Job) (outreach.Job, error) {
	if job.ID == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return outreach.Job{}, fmt.Errorf("generate job id: %w", err)
		}
		job.ID = id
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return outreach.Job{}, fmt.Errorf("begin job %s: %w", job.ID, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
INSERT INTO jobs (id, country, city, processed, created_at, finished_at) VALUES (?,?,?,?,?,?)
ON CONFLICT (id) DO UPDATE SET processed = excluded.processed, finished_at = excluded.finished_at`,
		job.ID, job.Country, job.City, job.Processed(), job.CreatedAt.UTC().UnixMilli(), toMillis(job.FinishedAt))
	if err != nil {
		return outreach.Job{}, fmt.Errorf("upsert job %s: %w", job.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM job_places WHERE job_id = ?`, job.ID); err != nil {
		return outreach.Job{}, fmt.Errorf("reset job places %s: %w", job.ID, err)
	}
	for i, place := range job.Places {
		_, err := tx.ExecContext(ctx, `INSERT INTO job_places (job_id, position, place_id) VALUES (?,?,?)`,
			job.ID, i, place.PlaceID)
		if err != nil {
			return outreach.Job{}, fmt.Errorf("insert job place %s: %w", job.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return outreach.Job{}, fmt.Errorf("commit job %s: %w", job.ID, err)
	}
	return job, nil
}

// FindAll loads every job with its venues in processing order.
func (s *JobStore) FindAll(ctx context.Context) ([]outreach.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, country, city, created_at, finished_at FROM jobs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	jobs := make([]outreach.Job, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			job      outreach.Job
			created  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&job.ID, &job.Country, &job.City, &created, &finished); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.CreatedAt = *fromMillis(sql.NullInt64{Int64: created, Valid: true})
		job.FinishedAt = fromMillis(finished)
		job.Places = []outreach.Venue{}
		index[job.ID] = len(jobs)
		jobs = append(jobs, job)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	placeRows, err := s.db.QueryContext(ctx, `SELECT jp.job_id, p.id, p.place_id, p.name, p.address, p.website,
p.email, p.locale, p.needs_review, p.ignore, p.read_confirmed, p.contacted_at
FROM job_places jp JOIN places p ON p.place_id = jp.place_id
ORDER BY jp.job_id, jp.position`)
	if err != nil {
		return nil, fmt.Errorf("query job places: %w", err)
	}
	defer placeRows.Close()
	for placeRows.Next() {
		var (
			jobID     string
			v         outreach.Venue
			contacted sql.NullInt64
		)
		err := placeRows.Scan(&jobID, &v.ID, &v.PlaceID, &v.Name, &v.Address, &v.Website,
			&v.Email, &v.Locale, &v.NeedsReview, &v.Ignore, &v.ReadConfirmed, &contacted)
		if err != nil {
			return nil, fmt.Errorf("scan job place: %w", err)
		}
		v.ContactedAt = fromMillis(contacted)
		if i, ok := index[jobID]; ok {
			jobs[i].Places = append(jobs[i].Places, v)
		}
	}
	if err := placeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job places: %w", err)
	}
	return jobs, nil
}
