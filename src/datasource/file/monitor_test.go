package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigMonitorNotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "dataconfig.json")
	if err := os.WriteFile(target, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	monitor, err := NewConfigMonitor(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer monitor.Close()

	changed := make(chan string, 4)
	go monitor.Watch(func(path string) {
		changed <- path
	})

	// 覆盖写入触发Write事件
	if err := os.WriteFile(target, []byte(`{"topeconomies":[]}`), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-changed:
		if filepath.Base(path) != "dataconfig.json" {
			t.Errorf("changed path = %q", path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestConfigMonitorIgnoresNonJSON(t *testing.T) {
	dir := t.TempDir()

	monitor, err := NewConfigMonitor(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer monitor.Close()

	changed := make(chan string, 4)
	go monitor.Watch(func(path string) {
		changed <- path
	})

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-changed:
		t.Fatalf("unexpected notification for %q", path)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestConfigMonitorBadDir(t *testing.T) {
	if _, err := NewConfigMonitor(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
