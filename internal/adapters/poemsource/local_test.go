package poemsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/0xcro3dile/versecraft/internal/adapters/filewatcher"
	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"b_woods.txt":   "by Frost\nwhose woods these are\nnature is quiet",
		"a_sea.json":    `[{"title":"Sea","author":"M","lines":["the sea, the NATURE of it"]},{"title":"City","author":"N","lines":["traffic"]}]`,
		"c_notes.md":    "nature, but ignored",
		"d_broken.json": `{not json`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLocal_FetchMatchesCaseInsensitively(t *testing.T) {
	src, err := NewLocal(context.Background(), seedDir(t), 0, nil)
	require.NoError(t, err)

	got, err := src.Fetch(context.Background(), " Nature ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Sea", got[0].Title)
	assert.Equal(t, "b woods", got[1].Title)
	assert.Equal(t, "Frost", got[1].Author)
	assert.Equal(t, 3, src.Count())
}

func TestLocal_NoMatchIsNotFound(t *testing.T) {
	src, err := NewLocal(context.Background(), seedDir(t), 0, nil)
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), "volcano")
	require.ErrorIs(t, err, entities.ErrNotFound)

	_, err = src.Fetch(context.Background(), "")
	require.ErrorIs(t, err, entities.ErrInvalidInput)
}

func TestLocal_MaxFragments(t *testing.T) {
	src, err := NewLocal(context.Background(), seedDir(t), 1, nil)
	require.NoError(t, err)

	got, err := src.Fetch(context.Background(), "nature")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sea", got[0].Title)
}

func TestLocal_MissingDir(t *testing.T) {
	_, err := NewLocal(context.Background(), filepath.Join(t.TempDir(), "nope"), 0, nil)
	require.Error(t, err)
}

func TestLocal_WatchPicksUpChanges(t *testing.T) {
	dir := seedDir(t)
	src, err := NewLocal(context.Background(), dir, 0, nil)
	require.NoError(t, err)

	watcher, err := filewatcher.New(filewatcher.Options{Debounce: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := watcher.Watch(ctx, dir)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- src.Follow(ctx, events) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "e_volcano.txt"), []byte("the volcano sleeps"), 0o644))
	require.Eventually(t, func() bool {
		got, err := src.Fetch(context.Background(), "volcano")
		return err == nil && len(got) == 1
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "e_volcano.txt")))
	require.Eventually(t, func() bool {
		_, err := src.Fetch(context.Background(), "volcano")
		return err != nil
	}, 3*time.Second, 20*time.Millisecond)
}
