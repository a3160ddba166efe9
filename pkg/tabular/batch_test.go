package tabular

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEach(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"one.csv":   "a,b\n1,2\n3,4\n",
		"two.csv":   "x,y\n5,6\n",
		"three.csv": "p,q\n7,8\n9,10\n11,12\n",
	}
	var paths []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths = append(paths, path)
	}

	var mu sync.Mutex
	counts := make(map[string]int)

	err := ParseEach(context.Background(), paths, ReadOptions{HasHeader: Bool(false)}, 2,
		func(ctx context.Context, path string, rows *Rows) error {
			n := 0
			for rows.Next() {
				n++
			}
			if err := rows.Err(); err != nil {
				return err
			}
			mu.Lock()
			counts[filepath.Base(path)] = n
			mu.Unlock()
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"one.csv": 3, "two.csv": 2, "three.csv": 4}, counts)
}

func TestParseEach_ErrorStopsBatch(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("a,b\n1,2\n"), 0o644))
	missing := filepath.Join(dir, "missing.csv")

	err := ParseEach(context.Background(), []string{good, missing}, DefaultReadOptions(), 2,
		func(ctx context.Context, path string, rows *Rows) error {
			for rows.Next() {
			}
			return rows.Err()
		})

	var srcErr *SourceError
	assert.ErrorAs(t, err, &srcErr)
}

func TestParseEach_CallbackErrorPropagates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	boom := errors.New("boom")
	err := ParseEach(context.Background(), []string{path}, DefaultReadOptions(), 1,
		func(ctx context.Context, path string, rows *Rows) error {
			return boom
		})
	assert.ErrorIs(t, err, boom)
}

func TestParseEach_CanceledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ParseEach(ctx, []string{path}, DefaultReadOptions(), 1,
		func(ctx context.Context, path string, rows *Rows) error {
			assert.Fail(t, "callback should not run after cancellation")
			return nil
		})
	assert.ErrorIs(t, err, context.Canceled)
}
