package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/EllieBekrian/cab432/internal/model"
	"github.com/EllieBekrian/cab432/internal/store"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner reports a fixed progress sequence and returns err.
type stubRunner struct {
	reports []int
	err     error
}

func (r *stubRunner) Run(_ context.Context, _ string, report func(percent int)) error {
	for _, p := range r.reports {
		report(p)
	}
	return r.err
}

func newTestPipeline(t *testing.T, runner TaskRunner, maxJobs, workers int) (*Pipeline, *Metadata, *memStore) {
	t.Helper()

	viper.Set("transcode.max_jobs", maxJobs)
	viper.Set("transcode.workers", workers)

	s := newMemStore()
	m := NewMetadata(s, newMemCache(), &capturePublisher{})
	return NewPipeline(m, runner), m, s
}

func activityLog(t *testing.T, s *memStore, owner string) []string {
	t.Helper()

	recs, err := s.Scan(context.Background(), func(r store.Record) bool {
		return r.Kind == store.KindActivity && r.Owner == owner
	})
	require.NoError(t, err)

	var entries []string
	for _, rec := range recs {
		var a model.ActivityRecord
		require.NoError(t, rec.Decode(&a))
		entries = append(entries, a.Description)
	}
	return entries
}

func TestSubmitRequiresFileName(t *testing.T) {
	p, _, _ := newTestPipeline(t, &stubRunner{}, 4, 0)

	_, err := p.Submit(context.Background(), "alice", "")
	assert.ErrorIs(t, err, ErrNoFileName)
}

func TestSubmitRecordsInitialState(t *testing.T) {
	// No workers, the job stays queued so the initial state is stable.
	p, m, s := newTestPipeline(t, &stubRunner{}, 4, 0)
	ctx := context.Background()

	id, err := p.Submit(ctx, "alice", "video.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video.mp4", id)

	prog, err := m.Progress(ctx, "alice", "video.mp4")
	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.Equal(t, 0, prog.Progress)
	assert.Equal(t, model.StatusStarted, prog.Status)

	files, err := m.FileMetadata(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, model.StatusUploaded, files[0].Status)

	entries := activityLog(t, s, "alice")
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "Started processing")
}

func TestPipelineSuccess(t *testing.T) {
	runner := &stubRunner{reports: []int{25, 50, 75}}
	p, m, s := newTestPipeline(t, runner, 4, 1)
	p.StartWorkerPool()

	ctx := context.Background()

	_, err := p.Submit(ctx, "alice", "video.mp4")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		prog, err := m.Progress(ctx, "alice", "video.mp4")
		return err == nil && prog != nil && prog.Status == model.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	prog, err := m.Progress(ctx, "alice", "video.mp4")
	require.NoError(t, err)
	assert.Equal(t, 100, prog.Progress)

	entries := activityLog(t, s, "alice")
	found := false
	for _, e := range entries {
		if strings.Contains(e, "completed") {
			found = true
		}
	}
	assert.True(t, found, "expected a completion activity entry, got %v", entries)
}

func TestPipelineFailure(t *testing.T) {
	runner := &stubRunner{reports: []int{25}, err: errors.New("codec exploded")}
	p, m, s := newTestPipeline(t, runner, 4, 1)
	p.StartWorkerPool()

	ctx := context.Background()

	_, err := p.Submit(ctx, "alice", "video.mp4")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		prog, err := m.Progress(ctx, "alice", "video.mp4")
		return err == nil && prog != nil && prog.Status == model.StatusError
	}, 2*time.Second, 10*time.Millisecond)

	prog, err := m.Progress(ctx, "alice", "video.mp4")
	require.NoError(t, err)
	assert.Equal(t, 0, prog.Progress, "a failed task reports zero progress")

	entries := activityLog(t, s, "alice")
	found := false
	for _, e := range entries {
		if strings.Contains(e, "failed") {
			found = true
		}
	}
	assert.True(t, found, "expected a failure activity entry, got %v", entries)
}

func TestSubmitQueueFull(t *testing.T) {
	// Capacity one, no workers draining, so the second submission has
	// nowhere to go.
	p, m, _ := newTestPipeline(t, &stubRunner{}, 1, 0)
	ctx := context.Background()

	_, err := p.Submit(ctx, "alice", "first.mp4")
	require.NoError(t, err)

	_, err = p.Submit(ctx, "alice", "second.mp4")
	assert.ErrorIs(t, err, ErrQueueFull)

	// The rejected submission still reaches a terminal state.
	prog, err := m.Progress(ctx, "alice", "second.mp4")
	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.Equal(t, model.StatusError, prog.Status)
}

func TestOutOfRangeReportsAreIgnored(t *testing.T) {
	runner := &stubRunner{reports: []int{-5, 0, 100, 150, 60}}
	p, m, _ := newTestPipeline(t, runner, 4, 1)
	p.StartWorkerPool()

	ctx := context.Background()

	_, err := p.Submit(ctx, "alice", "video.mp4")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		prog, err := m.Progress(ctx, "alice", "video.mp4")
		return err == nil && prog != nil && prog.Status == model.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	// Only the in-range report and the terminal write made it through,
	// ending at the terminal state.
	prog, err := m.Progress(ctx, "alice", "video.mp4")
	require.NoError(t, err)
	assert.Equal(t, 100, prog.Progress)
}
