package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_RebuildOnWrite(t *testing.T) {
	dir := t.TempDir()
	var rebuilds int64
	w := NewWatcher(dir, []string{".md"}, func() {
		atomic.AddInt64(&rebuilds, 1)
	}, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "doc.md"), []byte("# Doc\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return atomic.LoadInt64(&rebuilds) >= 1 }) {
		t.Fatal("rebuild callback not invoked after write")
	}
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	var rebuilds int64
	w := NewWatcher(dir, []string{".md"}, func() {
		atomic.AddInt64(&rebuilds, 1)
	}, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.tmp"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := atomic.LoadInt64(&rebuilds); n != 0 {
		t.Errorf("unrelated extension triggered %d rebuilds", n)
	}
}

func TestWatcher_DebounceCollapsesBurst(t *testing.T) {
	dir := t.TempDir()
	var rebuilds int64
	w := NewWatcher(dir, []string{".md"}, func() {
		atomic.AddInt64(&rebuilds, 1)
	}, WithDebounce(200*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(dir, "doc.md"), []byte("update"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !waitFor(t, 3*time.Second, func() bool { return atomic.LoadInt64(&rebuilds) >= 1 }) {
		t.Fatal("rebuild never fired")
	}
	time.Sleep(300 * time.Millisecond)
	if n := atomic.LoadInt64(&rebuilds); n != 1 {
		t.Errorf("burst of writes triggered %d rebuilds, want 1", n)
	}
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	var rebuilds int64
	w := NewWatcher(dir, []string{".md"}, func() {
		atomic.AddInt64(&rebuilds, 1)
	}, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "chapter")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return atomic.LoadInt64(&rebuilds) >= 1 }) {
		t.Fatal("new directory should schedule a rebuild")
	}

	atomic.StoreInt64(&rebuilds, 0)
	if err := os.WriteFile(filepath.Join(sub, "inner.md"), []byte("# Inner\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return atomic.LoadInt64(&rebuilds) >= 1 }) {
		t.Fatal("writes inside new subdirectory should trigger a rebuild")
	}
}

func TestWatcher_NoRebuildAfterStop(t *testing.T) {
	dir := t.TempDir()
	var rebuilds int64
	w := NewWatcher(dir, []string{".md"}, func() {
		atomic.AddInt64(&rebuilds, 1)
	}, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "doc.md"), []byte("# Doc\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// Let the event reach the debounce timer, then shut down before it elapses.
	time.Sleep(20 * time.Millisecond)
	w.Stop()

	time.Sleep(200 * time.Millisecond)
	if n := atomic.LoadInt64(&rebuilds); n != 0 {
		t.Errorf("rebuild fired %d times after Stop", n)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(dir, nil, func() {})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "nope"), nil, func() {})
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error for missing root")
		w.Stop()
	}
}
