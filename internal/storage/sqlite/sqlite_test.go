package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

type counterIDs struct{ n atomic.Int64 }

func (c *counterIDs) NewID() (string, error) {
	return fmt.Sprintf("job-%d", c.n.Add(1)), nil
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countPlaces(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM places`).Scan(&n))
	return n
}

func TestPlaceStoreSaveIsIdempotent(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store := NewPlaceStore(db)
	ctx := context.Background()

	venue := outreach.Venue{PlaceID: "p-1", Name: "Tibits", Website: "https://tibits.ch", NeedsReview: true}
	first, err := store.Save(ctx, venue)
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := store.Save(ctx, first)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, countPlaces(t, db))

	loaded, err := store.FindByExternalID(ctx, "p-1")
	require.NoError(t, err)
	require.Equal(t, first, loaded)
}

func TestPlaceStoreRoundTripsContactState(t *testing.T) {
	t.Parallel()

	store := NewPlaceStore(openTestDB(t))
	ctx := context.Background()
	sent := time.UnixMilli(1700000000123).UTC()

	saved, err := store.Save(ctx, outreach.Venue{
		PlaceID:       "p-1",
		Name:          "Hiltl",
		Email:         "info@hiltl.ch",
		Locale:        "de-CH",
		ReadConfirmed: true,
		ContactedAt:   &sent,
	})
	require.NoError(t, err)

	loaded, err := store.FindByExternalID(ctx, "p-1")
	require.NoError(t, err)
	require.Equal(t, saved, loaded)
	require.True(t, loaded.Contacted())
}

func TestPlaceStoreSaveKeepsContactState(t *testing.T) {
	t.Parallel()

	store := NewPlaceStore(openTestDB(t))
	ctx := context.Background()
	stale, err := store.Save(ctx, outreach.Venue{PlaceID: "p-1", Name: "Tibits", Website: "https://tibits.ch", NeedsReview: true})
	require.NoError(t, err)

	sent := time.UnixMilli(1700000000123).UTC()
	contacted := stale
	contacted.Email = "info@tibits.ch"
	contacted.Locale = "de-CH"
	contacted.NeedsReview = false
	contacted.ContactedAt = &sent
	contacted.ReadConfirmed = true
	_, err = store.Save(ctx, contacted)
	require.NoError(t, err)

	stale.Email = "scraped@tibits.ch"
	got, err := store.Save(ctx, stale)
	require.NoError(t, err)
	require.Equal(t, &sent, got.ContactedAt)
	require.True(t, got.ReadConfirmed)
	require.Equal(t, "info@tibits.ch", got.Email)
	require.Equal(t, "de-CH", got.Locale)
	require.False(t, got.NeedsReview)

	loaded, err := store.FindByExternalID(ctx, "p-1")
	require.NoError(t, err)
	require.Equal(t, got, loaded)
}

func TestPlaceStoreFindByExternalIDMissing(t *testing.T) {
	t.Parallel()

	_, err := NewPlaceStore(openTestDB(t)).FindByExternalID(context.Background(), "missing")
	require.ErrorIs(t, err, outreach.ErrNotFound)
}

func TestPlaceStoreCreateFromExternalConcurrent(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store := NewPlaceStore(db)
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			venue, err := store.CreateFromExternal(ctx, outreach.Venue{PlaceID: "dup", Name: "Same", NeedsReview: true})
			ids[i], errs[i] = venue.ID, err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, countPlaces(t, db))
	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
}

func TestPlaceStoreReviewAndSummary(t *testing.T) {
	t.Parallel()

	store := NewPlaceStore(openTestDB(t))
	ctx := context.Background()
	sent := time.Unix(100, 0).UTC()
	for _, venue := range []outreach.Venue{
		{PlaceID: "a", NeedsReview: true},
		{PlaceID: "b", NeedsReview: true, Ignore: true},
		{PlaceID: "c", Email: "info@c.ch", Locale: "de-CH", ContactedAt: &sent, ReadConfirmed: true},
		{PlaceID: "d", Email: "info@d.de", Locale: "de-DE", ContactedAt: &sent},
		{PlaceID: "e", Email: "info@e.ch", Locale: "fr-CH", ContactedAt: &sent},
	} {
		_, err := store.Save(ctx, venue)
		require.NoError(t, err)
	}

	review, err := store.FindAllNeedingReview(ctx)
	require.NoError(t, err)
	require.Len(t, review, 1)
	require.Equal(t, "a", review[0].PlaceID)

	summary, err := store.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, outreach.Summary{Contacted: 3, Reacted: 1, NeedReview: 2, NumCountries: 2}, summary)
}

func TestJobStoreKeepsProcessedInSync(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	places := NewPlaceStore(db)
	jobs := NewJobStore(db, &counterIDs{})
	ctx := context.Background()

	job, err := jobs.Save(ctx, outreach.Job{Country: "CH", City: "Bern", CreatedAt: time.Unix(10, 0).UTC()})
	require.NoError(t, err)
	require.Equal(t, "job-1", job.ID)

	for _, id := range []string{"p-1", "p-2"} {
		venue, err := places.Save(ctx, outreach.Venue{PlaceID: id, Name: id, NeedsReview: true})
		require.NoError(t, err)
		job.Places = append(job.Places, venue)
		job, err = jobs.Save(ctx, job)
		require.NoError(t, err)

		var processed, rows int
		require.NoError(t, db.QueryRow(`SELECT processed FROM jobs WHERE id = ?`, job.ID).Scan(&processed))
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM job_places WHERE job_id = ?`, job.ID).Scan(&rows))
		require.Equal(t, processed, rows)
		require.Equal(t, job.Processed(), processed)
	}

	finished := time.Unix(20, 0).UTC()
	job.FinishedAt = &finished
	_, err = jobs.Save(ctx, job)
	require.NoError(t, err)

	all, err := jobs.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, 2, all[0].Processed())
	require.Equal(t, "p-1", all[0].Places[0].PlaceID)
	require.Equal(t, finished, *all[0].FinishedAt)
	require.Equal(t, time.Unix(10, 0).UTC(), all[0].CreatedAt)
}
