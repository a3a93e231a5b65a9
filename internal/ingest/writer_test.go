package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 10, 19, 8, 5, 3, 123456789, time.FixedZone("X", 3600))
	if got, want := FormatTimestamp(ts), "20261019T070503123456Z"; got != want {
		t.Fatalf("FormatTimestamp() = %q, want %q", got, want)
	}
}

func TestWriteLayoutAndContent(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2026, 10, 19, 12, 0, 0, 1000, time.UTC)
	w, err := NewWriter(Config{BaseDir: base, Now: fixedClock(now)})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	text := "client_02\nBuy 3 units\n  ünïcödé  "
	rec, err := w.Write(context.Background(), "client_02", text)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	wantPath := filepath.Join(w.BaseDir(), "Clients", "client_02", "IN_TXT", "telegram_20261019T120000000001Z.txt")
	if rec.Path != wantPath {
		t.Fatalf("Path = %q, want %q", rec.Path, wantPath)
	}
	if !filepath.IsAbs(rec.Path) {
		t.Fatalf("Path %q is not absolute", rec.Path)
	}
	if rec.ClientID != "client_02" || rec.Timestamp != "20261019T120000000001Z" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Length != len([]rune(text)) {
		t.Fatalf("Length = %d, want %d", rec.Length, len([]rune(text)))
	}

	got, err := os.ReadFile(rec.Path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != text {
		t.Fatalf("content = %q, want %q", got, text)
	}
}

func TestWriteRapidSuccessionDistinctFiles(t *testing.T) {
	// A frozen clock forces the writer to bump timestamps on its own.
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	w, err := NewWriter(Config{BaseDir: t.TempDir(), Now: fixedClock(now)})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	first := strings.Repeat("a", 64*1024)
	second := strings.Repeat("b", 64*1024+7)
	r1, err := w.Write(context.Background(), "client_01", first)
	if err != nil {
		t.Fatalf("Write#1 error = %v", err)
	}
	r2, err := w.Write(context.Background(), "client_01", second)
	if err != nil {
		t.Fatalf("Write#2 error = %v", err)
	}
	if r1.Path == r2.Path {
		t.Fatalf("both writes used %q", r1.Path)
	}
	if !(r1.Timestamp < r2.Timestamp) {
		t.Fatalf("timestamps not increasing: %q then %q", r1.Timestamp, r2.Timestamp)
	}

	for _, c := range []struct {
		rec  Record
		want string
	}{{r1, first}, {r2, second}} {
		got, err := os.ReadFile(c.rec.Path)
		if err != nil {
			t.Fatalf("read %s: %v", c.rec.Path, err)
		}
		if string(got) != c.want {
			t.Fatalf("%s truncated: got %d bytes, want %d", c.rec.Path, len(got), len(c.want))
		}
	}

	entries, err := os.ReadDir(w.InboxPath("client_01"))
	if err != nil {
		t.Fatalf("read inbox: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("inbox has %d entries, want 2", len(entries))
	}
}

func TestWriteRealClockDistinct(t *testing.T) {
	w, err := NewWriter(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		rec, err := w.Write(context.Background(), "client_03", "msg")
		if err != nil {
			t.Fatalf("Write#%d error = %v", i, err)
		}
		if seen[rec.Path] {
			t.Fatalf("duplicate path %s", rec.Path)
		}
		seen[rec.Path] = true
	}
}

func TestWriteRejectsBadClientID(t *testing.T) {
	w, err := NewWriter(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	for _, id := range []string{"", "../etc", "client_1", "CLIENT_01", "client_01/../x"} {
		if _, err := w.Write(context.Background(), id, "x"); !errors.Is(err, ErrInvalidClientID) {
			t.Fatalf("Write(%q) error = %v, want ErrInvalidClientID", id, err)
		}
	}
}

func TestWriteFailureReturnsNoRecord(t *testing.T) {
	base := t.TempDir()
	// A regular file where the Clients directory should be makes MkdirAll fail.
	if err := os.WriteFile(filepath.Join(base, "Clients"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	w, err := NewWriter(Config{BaseDir: base})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	rec, err := w.Write(context.Background(), "client_01", "hello")
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("Write() error = %v, want ErrWriteFailed", err)
	}
	if rec != (Record{}) {
		t.Fatalf("Write() returned partial record %+v", rec)
	}
}
