package logx

import (
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	l := NewLogger("store")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.Component() != "store" {
		t.Errorf("expected component 'store', got %q", l.Component())
	}
}

func TestDebugGating(t *testing.T) {
	orig := IsDebugEnabled()
	defer SetDebug(orig)

	SetDebug(false)
	if IsDebugEnabled() {
		t.Error("expected debug disabled")
	}

	SetDebug(true)
	if !IsDebugEnabled() {
		t.Error("expected debug enabled")
	}
}

func TestRecentEntries(t *testing.T) {
	l := NewLogger("test-buffer")
	before := time.Now().UTC().Add(-time.Second)

	l.Info("compression applied: %d -> %d messages", 100, 40)
	l.Warn("eviction pass removed %d conversations", 3)

	entries := RecentEntries(before)
	var found int
	for i := range entries {
		if entries[i].Component == "test-buffer" {
			found++
		}
	}
	if found != 2 {
		t.Errorf("expected 2 buffered entries for component, got %d", found)
	}
}

func TestBufferBounded(t *testing.T) {
	b := &buffer{maxSize: 5}
	for i := 0; i < 20; i++ {
		b.add(Entry{Component: "x", Message: "m"})
	}
	if len(b.entries) != 5 {
		t.Errorf("expected buffer capped at 5, got %d", len(b.entries))
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("expected nil for nil error")
	}
}
