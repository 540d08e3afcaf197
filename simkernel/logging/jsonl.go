package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/eugenway/perpsim/simkernel"
)

// JSONLLogger appends every Event, as one JSON object per line, to a
// single file. Where the CSV loggers split events by kind into narrow
// columns, this one keeps the full Event struct, for tooling that wants
// to replay or diff an entire run rather than chart one metric.
type JSONLLogger struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	errc   chan<- error
}

// NewJSONLLogger creates (or truncates) path and wraps it in a buffered
// writer. Call Close when the run finishes to flush the buffer.
func NewJSONLLogger(path string) (*JSONLLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLLogger{file: f, writer: bufio.NewWriter(f)}, nil
}

// OnErrors routes write/encode failures to errc instead of dropping them.
func (l *JSONLLogger) OnErrors(errc chan<- error) { l.errc = errc }

func (l *JSONLLogger) OnEvent(e simkernel.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := json.NewEncoder(l.writer).Encode(e); err != nil && l.errc != nil {
		l.errc <- err
	}
}

// Close flushes the buffer and closes the underlying file.
func (l *JSONLLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
