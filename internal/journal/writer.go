// Package journal keeps an append-only record of publish runs: one JSON line
// per create request, synced to disk before the run moves on. If the process
// dies mid-run the journal still names every issue that was created.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	currentName  = "journal.jsonl"
	rotatedGlob  = "journal_*.jsonl"
	rotatedStamp = "20060102_150405.000000000"
)

// Config contains journal configuration
type Config struct {
	// Dir holds the journal files.
	Dir string
	// MaxFileSize is the size at which the journal rotates (default: 10MB).
	MaxFileSize int64
	// MaxFiles is the number of rotated files kept (default: 5).
	MaxFiles int
}

// DefaultConfig returns the rotation defaults for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		MaxFileSize: 10 * 1024 * 1024,
		MaxFiles:    5,
	}
}

// Writer appends events to the journal. It is safe for concurrent use.
type Writer struct {
	dir         string
	maxFileSize int64
	maxFiles    int

	mu   sync.Mutex
	file *os.File
}

// Open creates the journal directory if needed and opens the current file
// for appending.
func Open(cfg Config) (*Writer, error) {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultConfig("").MaxFileSize
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultConfig("").MaxFiles
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	w := &Writer{dir: cfg.Dir, maxFileSize: cfg.MaxFileSize, maxFiles: cfg.MaxFiles}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) open() error {
	f, err := os.OpenFile(w.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	w.file = f
	return nil
}

// Path returns the file events are currently appended to.
func (w *Writer) Path() string {
	return filepath.Join(w.dir, currentName)
}

// Record writes ev and syncs it to disk.
func (w *Writer) Record(ev *Event) error {
	line, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("encode journal event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return errors.New("journal is closed")
	}

	if err := w.checkRotation(); err != nil {
		return fmt.Errorf("rotate journal: %w", err)
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return w.file.Sync()
}

// checkRotation rotates the current file once it reaches the size limit.
func (w *Writer) checkRotation() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < w.maxFileSize {
		return nil
	}
	return w.rotate()
}

func (w *Writer) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	rotated := filepath.Join(w.dir, fmt.Sprintf("journal_%s.jsonl", time.Now().UTC().Format(rotatedStamp)))
	if err := os.Rename(w.Path(), rotated); err != nil {
		return errors.Join(err, w.open())
	}
	if err := w.cleanupOldFiles(); err != nil {
		return errors.Join(err, w.open())
	}
	return w.open()
}

// cleanupOldFiles keeps the newest maxFiles rotated files.
func (w *Writer) cleanupOldFiles() error {
	files, err := filepath.Glob(filepath.Join(w.dir, rotatedGlob))
	if err != nil {
		return err
	}
	if len(files) <= w.maxFiles {
		return nil
	}
	sort.Strings(files)
	for _, f := range files[:len(files)-w.maxFiles] {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Close syncs and closes the journal.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Sync()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	return err
}

// Read returns the events in the journal file at path, optionally only those
// of runID.
func Read(path, runID string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return events, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if runID == "" || ev.RunID == runID {
			events = append(events, ev)
		}
	}
	return events, scanner.Err()
}
