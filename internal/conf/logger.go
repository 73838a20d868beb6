package conf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultLogMaxLines is the line cap of the log file
const DefaultLogMaxLines = 10000

const tailChunkSize = 4096

// LogFile is the optional on-disk copy of the log output. It keeps at most
// maxLines lines; when a write would pass the cap the oldest tenth is dropped.
type LogFile struct {
	path     string
	f        *os.File
	maxLines int
	lines    int
	mu       sync.Mutex
}

// SetupLogger configures the standard logrus logger. When c.File is set the
// output is also appended to that file; the returned LogFile must be closed.
func SetupLogger(c LogConfig) (*LogFile, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Level, err)
	}
	logrus.SetLevel(level)

	switch c.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", c.Format)
	}

	if c.File == "" {
		logrus.SetOutput(os.Stdout)
		return &LogFile{}, nil
	}

	lf, err := openLogFile(c.File, c.MaxLines)
	if err != nil {
		return nil, err
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, lf))
	return lf, nil
}

func openLogFile(path string, maxLines int) (*LogFile, error) {
	if maxLines <= 0 {
		maxLines = DefaultLogMaxLines
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	lines, err := countLines(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	lf := &LogFile{path: path, f: f, maxLines: maxLines, lines: lines}
	if lines > maxLines {
		if err := lf.trimLocked(maxLines); err != nil {
			f.Close()
			return nil, err
		}
	}
	return lf, nil
}

// Write appends p, trimming old lines first if p would pass the cap
func (l *LogFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return 0, os.ErrClosed
	}

	n := bytes.Count(p, []byte{'\n'})
	if l.lines+n > l.maxLines {
		keep := l.maxLines - l.maxLines/10
		if keep > l.maxLines-n {
			keep = l.maxLines - n
		}
		if keep < 0 {
			keep = 0
		}
		if err := l.trimLocked(keep); err != nil {
			return 0, err
		}
	}

	written, err := l.f.Write(p)
	l.lines += n
	return written, err
}

// trimLocked rewrites the file with only its last keep lines
func (l *LogFile) trimLocked(keep int) error {
	info, err := l.f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	tail, err := tailLines(l.f, info.Size(), keep)
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}
	if len(tail) > 0 {
		tail = append(tail, '\n')
	}

	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("failed to trim log file: %w", err)
	}
	if _, err := l.f.Write(tail); err != nil {
		return fmt.Errorf("failed to trim log file: %w", err)
	}
	l.lines = bytes.Count(tail, []byte{'\n'})
	return nil
}

// Path returns the log file path, empty when file logging is off
func (l *LogFile) Path() string {
	return l.path
}

// Lines returns the number of lines currently in the file
func (l *LogFile) Lines() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lines
}

// Recent returns the last n lines of the log file
func (l *LogFile) Recent(n int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil || n <= 0 {
		return "", nil
	}

	info, err := l.f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat log file: %w", err)
	}
	tail, err := tailLines(l.f, info.Size(), n)
	if err != nil {
		return "", fmt.Errorf("failed to read log file: %w", err)
	}
	return string(tail), nil
}

// Clear truncates the log file
func (l *LogFile) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("failed to clear log file: %w", err)
	}
	l.lines = 0
	return nil
}

// Close releases the log file
func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// tailLines returns the last n lines of r without the final newline.
// It reads backwards from the end in fixed-size chunks.
func tailLines(r io.ReaderAt, size int64, n int) ([]byte, error) {
	if n <= 0 || size == 0 {
		return nil, nil
	}

	end := size
	last := make([]byte, 1)
	if _, err := r.ReadAt(last, size-1); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if last[0] == '\n' {
		end--
	}

	start := int64(0)
	found := 0
	buf := make([]byte, tailChunkSize)
	pos := end

scan:
	for pos > 0 {
		chunk := int64(len(buf))
		if pos < chunk {
			chunk = pos
		}
		pos -= chunk
		if _, err := r.ReadAt(buf[:chunk], pos); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		for i := chunk - 1; i >= 0; i-- {
			if buf[i] != '\n' {
				continue
			}
			found++
			if found == n {
				start = pos + i + 1
				break scan
			}
		}
	}

	out := make([]byte, end-start)
	if len(out) == 0 {
		return nil, nil
	}
	if _, err := r.ReadAt(out, start); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}

func countLines(r io.Reader) (int, error) {
	buf := make([]byte, 32*1024)
	count := 0
	for {
		n, err := r.Read(buf)
		count += bytes.Count(buf[:n], []byte{'\n'})
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
	}
}
