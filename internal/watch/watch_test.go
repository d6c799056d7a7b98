package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePayload(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	writePayload(t, path, `{"success":true}`)

	w, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	if w.Path() != path {
		t.Errorf("Path = %s, want %s", w.Path(), path)
	}

	if _, err := New(filepath.Join(dir, "missing.json"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWatcher_CoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	writePayload(t, path, `{"success":true,"notifications":[]}`)

	w, err := New(path, &Options{Debounce: 100 * time.Millisecond, PollInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 5; i++ {
		writePayload(t, path, `{"success":true,"notifications":[{"_id":"`+string(rune('a'+i))+`"}]}`)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case ev := <-w.Events():
		if ev.Err != nil {
			t.Fatalf("event error: %v", ev.Err)
		}
		if ev.Path != path {
			t.Errorf("event path = %s", ev.Path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change event")
	}

	select {
	case ev, ok := <-w.Events():
		if ok && ev.Err == nil {
			t.Errorf("burst produced a second event")
		}
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	writePayload(t, path, `{}`)

	w, err := New(path, &Options{Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	writePayload(t, filepath.Join(dir, "other.json"), `{}`)

	select {
	case ev := <-w.Events():
		t.Errorf("unexpected event %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopClosesEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	writePayload(t, path, `{}`)

	w, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
	w.Stop()
}
