package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

// JobStore implements outreach.JobRepository on Postgres.
type JobStore struct {
	db  DB
	ids outreach.IDGenerator
}

// NewJobStore wraps an open pool; ids assigns job ids on first save.
func NewJobStore(db DB, ids outreach.IDGenerator) (*JobStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	return &JobStore{db: db, ids: ids}, nil
}

// Save writes the job row and its place list in one transaction so the
// stored processed count always matches the stored list.
func (s *JobStore) Save(ctx context.Context, job outreach.Job) (outreach.Job, error) {
	if job.ID == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return outreach.Job{}, fmt.Errorf("generate job id: %w", err)
		}
		job.ID = id
	}
	positions := make([]int32, len(job.Places))
	placeIDs := make([]string, len(job.Places))
	for i, place := range job.Places {
		positions[i] = int32(i) //nolint:gosec // job sizes are far below int32
		placeIDs[i] = place.PlaceID
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO jobs (id, country, city, processed, created_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET processed = EXCLUDED.processed, finished_at = EXCLUDED.finished_at`,
			job.ID, job.Country, job.City, job.Processed(), job.CreatedAt, job.FinishedAt)
		if err != nil {
			return fmt.Errorf("upsert job: %w", err)
		}
		if len(job.Places) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `
INSERT INTO job_places (job_id, position, place_id)
SELECT $1, t.position, t.place_id FROM unnest($2::int[], $3::text[]) AS t(position, place_id)
ON CONFLICT (job_id, position) DO UPDATE SET place_id = EXCLUDED.place_id`,
			job.ID, positions, placeIDs)
		if err != nil {
			return fmt.Errorf("upsert job places: %w", err)
		}
		return nil
	})
	if err != nil {
		return outreach.Job{}, fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return job, nil
}

// FindAll loads every job with its venues in processing order.
func (s *JobStore) FindAll(ctx context.Context) ([]outreach.Job, error) {
	rows, err := s.db.Query(ctx, `SELECT id, country, city, created_at, finished_at FROM jobs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	jobs := make([]outreach.Job, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			job      outreach.Job
			finished *time.Time
		)
		if err := rows.Scan(&job.ID, &job.Country, &job.City, &job.CreatedAt, &finished); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.FinishedAt = finished
		job.Places = []outreach.Venue{}
		index[job.ID] = len(jobs)
		jobs = append(jobs, job)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	if len(jobs) == 0 {
		return jobs, nil
	}

	placeRows, err := s.db.Query(ctx, `SELECT jp.job_id, p.id, p.place_id, p.name, p.address, p.website, p.email,
p.locale, p.needs_review, p.ignore, p.read_confirmed, p.contacted_at
FROM job_places jp JOIN places p ON p.place_id = jp.place_id
ORDER BY jp.job_id, jp.position`)
	if err != nil {
		return nil, fmt.Errorf("query job places: %w", err)
	}
	defer placeRows.Close()
	for placeRows.Next() {
		var (
			jobID string
			v     outreach.Venue
		)
		err := placeRows.Scan(&jobID, &v.ID, &v.PlaceID, &v.Name, &v.Address, &v.Website, &v.Email,
			&v.Locale, &v.NeedsReview, &v.Ignore, &v.ReadConfirmed, &v.ContactedAt)
		if err != nil {
			return nil, fmt.Errorf("scan job place: %w", err)
		}
		if i, ok := index[jobID]; ok {
			jobs[i].Places = append(jobs[i].Places, v)
		}
	}
	if err := placeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job places: %w", err)
	}
	return jobs, nil
}
