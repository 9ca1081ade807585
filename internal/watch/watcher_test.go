package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/classify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/sniff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []classify.UploadEvent
}

func (c *captureSink) Handle(ev classify.UploadEvent) (models.Finding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return models.Finding{}, nil
}

func (c *captureSink) snapshot() []classify.UploadEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]classify.UploadEvent(nil), c.events...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatcherEmitsSettledUpload(t *testing.T) {
	dir := t.TempDir()
	sink := &captureSink{}

	w, err := New([]string{dir}, sink, Options{Settle: 50 * time.Millisecond, Poll: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "payload.jpg")
	require.NoError(t, os.WriteFile(path, []byte("MZ\x90\x00 fake executable body"), 0o644))

	waitFor(t, 3*time.Second, func() bool { return len(sink.snapshot()) == 1 })

	ev := sink.snapshot()[0]
	assert.Equal(t, path, ev.FilePath)
	assert.Equal(t, sniff.SigPEExecutable, ev.Signature)
	assert.Greater(t, ev.SizeBytes, int64(0))
}

func TestWatcherCoalescesChunkedWrites(t *testing.T) {
	dir := t.TempDir()
	sink := &captureSink{}

	w, err := New([]string{dir}, sink, Options{Settle: 100 * time.Millisecond, Poll: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "big.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.Write([]byte("chunk"))
		require.NoError(t, err)
		time.Sleep(30 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	waitFor(t, 3*time.Second, func() bool { return len(sink.snapshot()) >= 1 })
	// A brief quiet period, then confirm no duplicate event for the same file.
	time.Sleep(300 * time.Millisecond)
	assert.Len(t, sink.snapshot(), 1)
}

func TestWatcherPicksUpNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sink := &captureSink{}

	w, err := New([]string{dir}, sink, Options{Settle: 50 * time.Millisecond, Poll: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	sub := filepath.Join(dir, "incoming")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond) // let the watch registration land

	path := filepath.Join(sub, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello from the share"), 0o644))

	waitFor(t, 3*time.Second, func() bool { return len(sink.snapshot()) == 1 })
	assert.Equal(t, path, sink.snapshot()[0].FilePath)
}

func TestWatcherSkipsMissingRoot(t *testing.T) {
	sink := &captureSink{}
	w, err := New([]string{"/nonexistent/share"}, sink, Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
}
