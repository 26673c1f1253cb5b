package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/killallgit/speech-coach/pkg/download"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	deleted int64
	err     error
	days    int
}

func (f *fakePruner) CleanupOldJobs(ctx context.Context, retentionDays int) (int64, error) {
	f.days = retentionDays
	return f.deleted, f.err
}

func writeFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	mod := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestRunOnce(t *testing.T) {
	dir := t.TempDir()
	old := writeFile(t, dir, download.TempPrefix+"old.wav", 2*time.Hour)
	fresh := writeFile(t, dir, download.TempPrefix+"fresh.wav", time.Minute)
	unrelated := writeFile(t, dir, "notes.txt", 2*time.Hour)

	pruner := &fakePruner{deleted: 4}
	svc := NewService(Options{TempDir: dir, MaxAge: time.Hour, JobRetentionDays: 7}, pruner)

	res := svc.RunOnce(context.Background())
	assert.Equal(t, 1, res.TempFiles)
	assert.Equal(t, int64(4), res.Jobs)
	assert.Equal(t, 7, pruner.days)

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, unrelated)
}

func TestRunOnce_Disabled(t *testing.T) {
	pruner := &fakePruner{deleted: 4, err: errors.New("should not run")}
	svc := NewService(Options{}, pruner)

	res := svc.RunOnce(context.Background())
	assert.Equal(t, Result{}, res)
	assert.Zero(t, pruner.days)
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	old := writeFile(t, dir, download.TempPrefix+"old.wav", 2*time.Hour)

	svc := NewService(Options{TempDir: dir, MaxAge: time.Hour, Interval: 10 * time.Millisecond}, nil)
	svc.Start(context.Background())
	assert.NoFileExists(t, old, "first pass runs synchronously")

	late := writeFile(t, dir, download.TempPrefix+"late.wav", 2*time.Hour)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(late)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)

	svc.Stop()
}
