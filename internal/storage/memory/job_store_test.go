package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/venue-outreach/internal/outreach"
)

type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("job-%d", s.n), nil
}

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewJobStore(&seqIDs{})
	ctx := context.Background()

	job, err := store.Save(ctx, outreach.Job{Country: "CH", City: "Bern", CreatedAt: time.Unix(1, 0)})
	require.NoError(t, err)
	require.Equal(t, "job-1", job.ID)
	require.Zero(t, job.Processed())

	job.Places = append(job.Places, outreach.Venue{PlaceID: "a"})
	job, err = store.Save(ctx, job)
	require.NoError(t, err)

	job.Places[0].Name = "mutated after save"
	stored, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.Processed())
	require.Empty(t, stored.Places[0].Name)

	finished := time.Unix(2, 0)
	job.FinishedAt = &finished
	_, err = store.Save(ctx, job)
	require.NoError(t, err)

	_, err = store.Save(ctx, outreach.Job{Country: "DE", City: "Berlin", CreatedAt: time.Unix(3, 0)})
	require.NoError(t, err)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "job-1", all[0].ID)
	require.True(t, all[0].Finished())
	require.Equal(t, "job-2", all[1].ID)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, outreach.ErrNotFound)
}
