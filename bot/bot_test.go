package bot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"tanuki/logger"
	"tanuki/storage"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	specs []string
	jobs  []func()
}

func (s *fakeScheduler) Start()                {}
func (s *fakeScheduler) Stop() context.Context { return context.Background() }
func (s *fakeScheduler) AddFunc(spec string, cmd func()) (cron.EntryID, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return 0, err
	}
	s.specs = append(s.specs, spec)
	s.jobs = append(s.jobs, cmd)
	return cron.EntryID(len(s.jobs)), nil
}

type fakePruner struct {
	maxAge  time.Duration
	results []storage.DeleteResult
}

func (p *fakePruner) Prune(maxAge time.Duration) []storage.DeleteResult {
	p.maxAge = maxAge
	return p.results
}

func TestScheduleRetention(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, slog.LevelDebug)
	sched := &fakeScheduler{}
	pruner := &fakePruner{results: []storage.DeleteResult{
		{File: "a.json"},
		{File: "b.json", Err: errors.New("denied")},
	}}

	ok, err := scheduleRetention(sched, pruner, 48*time.Hour, "@daily", log)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, sched.jobs, 1)
	assert.Equal(t, "@daily", sched.specs[0])

	sched.jobs[0]()
	assert.Equal(t, 48*time.Hour, pruner.maxAge)
	assert.Contains(t, buf.String(), `"deleted":1`)
	assert.Contains(t, buf.String(), `"failed":1`)
}

func TestScheduleRetentionDisabled(t *testing.T) {
	var buf bytes.Buffer
	sched := &fakeScheduler{}
	ok, err := scheduleRetention(sched, &fakePruner{}, 0, "@daily", logger.New(&buf, slog.LevelDebug))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, sched.jobs)
}

func TestScheduleRetentionInvalidSchedule(t *testing.T) {
	var buf bytes.Buffer
	ok, err := scheduleRetention(&fakeScheduler{}, &fakePruner{}, time.Hour, "not a schedule", logger.New(&buf, slog.LevelDebug))
	assert.Error(t, err)
	assert.False(t, ok)
}
