package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogRotator wraps a log file and bounds it to a number of lines.
// Once the file holds twice the limit it is rewritten with the newest lines.
type LogRotator struct {
	writer   io.Writer
	buffer   *RingBuffer
	filePath string
	maxLines int
	written  int // Lines in the file since the last rewrite
	mutex    sync.Mutex
}

// NewLogRotator creates a new LogRotator. A maxLines of zero or less disables
// rotation.
func NewLogRotator(writer io.Writer, maxLines int, filePath string) *LogRotator {
	return &LogRotator{
		writer:   writer,
		buffer:   NewRingBuffer(maxLines),
		filePath: filePath,
		maxLines: maxLines,
	}
}

// Write implements io.Writer and maintains the line buffer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	n, err := w.writer.Write(p)
	if err != nil || w.maxLines <= 0 {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.buffer.Add(line)
		w.written++
	}

	if w.written >= w.maxLines*2 {
		if err := w.rotate(); err != nil {
			return n, fmt.Errorf("failed to rotate log file: %w", err)
		}

		w.written = w.buffer.Len()
	}

	return n, nil
}

// rotate replaces the file with the buffered lines.
func (w *LogRotator) rotate() error {
	temp, err := os.CreateTemp(filepath.Dir(w.filePath), "temp-log-")
	if err != nil {
		return err
	}

	tempPath := temp.Name()
	content := strings.Join(w.buffer.Lines(), "\n") + "\n"

	if _, err := temp.WriteString(content); err != nil {
		temp.Close()
		os.Remove(tempPath)

		return err
	}

	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	if closer, ok := w.writer.(io.Closer); ok {
		closer.Close()
	}

	if err := os.Rename(tempPath, w.filePath); err != nil {
		os.Remove(tempPath)
		return err
	}

	file, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w.writer = file

	return nil
}
