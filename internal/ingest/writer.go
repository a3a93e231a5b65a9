package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"time"
	"unicode/utf8"

	"labelops/internal/fsutil"
)

const (
	ClientsDir   = "Clients"
	InboxDir     = "IN_TXT"
	filePrefix   = "telegram_"
	fileSuffix   = ".txt"
	tsLayoutBase = "20060102T150405"
)

var (
	ErrWriteFailed     = errors.New("ingestion write failed")
	ErrInvalidClientID = errors.New("invalid client id")

	clientIDPattern = regexp.MustCompile(`^client_[0-9]{2}$`)
)

// Record is the receipt for one persisted message. The file is the durable
// record; this value is only handed back to the caller.
type Record struct {
	ClientID  string
	Path      string
	Length    int
	Timestamp string
}

type Writer struct {
	baseDir string
	now     func() time.Time

	mu   sync.Mutex
	last time.Time
}

type Config struct {
	BaseDir string
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

func NewWriter(cfg Config) (*Writer, error) {
	base, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Writer{baseDir: base, now: now}, nil
}

// ValidClientID reports whether id is a canonical client id usable as a
// directory name under Clients/.
func ValidClientID(id string) bool {
	return clientIDPattern.MatchString(id)
}

func (w *Writer) BaseDir() string {
	return w.baseDir
}

func (w *Writer) InboxPath(clientID string) string {
	return filepath.Join(w.baseDir, ClientsDir, clientID, InboxDir)
}

// Write persists text verbatim under the client's inbox.
func (w *Writer) Write(ctx context.Context, clientID, text string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if !ValidClientID(clientID) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidClientID, clientID)
	}

	ts := FormatTimestamp(w.nextInstant())
	path := filepath.Join(w.InboxPath(clientID), filePrefix+ts+fileSuffix)
	if err := fsutil.WriteAtomic(path, []byte(text), fsutil.FileOptions{}); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	return Record{
		ClientID:  clientID,
		Path:      path,
		Length:    utf8.RuneCountInString(text),
		Timestamp: ts,
	}, nil
}

// nextInstant returns a UTC instant strictly after the previous one at
// microsecond resolution, so file names never collide inside this process.
func (w *Writer) nextInstant() time.Time {
	t := w.now().UTC().Truncate(time.Microsecond)
	w.mu.Lock()
	defer w.mu.Unlock()
	if !t.After(w.last) {
		t = w.last.Add(time.Microsecond)
	}
	w.last = t
	return t
}

// FormatTimestamp renders t as YYYYMMDDTHHMMSSffffffZ in UTC.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%06dZ", t.Format(tsLayoutBase), t.Nanosecond()/int(time.Microsecond))
}
