package logging

import (
	"bytes"
	"log/slog"
)

// Writer is an io.Writer that forwards each complete line to slog. Partial
// lines are buffered until the newline arrives or Flush is called.
type Writer struct {
	logger *slog.Logger
	msg    string
	buf    bytes.Buffer
}

// NewWriter constructs a Writer bound to the provided logger. Each line is
// logged at info level under msg with the text in the "line" attribute.
func NewWriter(logger *slog.Logger, msg string) *Writer {
	if msg == "" {
		msg = "output"
	}
	return &Writer{logger: logger, msg: msg}
}

// Write logs every complete line in p.
func (w *Writer) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(w.buf.Next(i+1), "\r\n"))
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs any buffered partial line.
func (w *Writer) Flush() {
	if w.buf.Len() == 0 {
		return
	}
	line := w.buf.String()
	w.buf.Reset()
	w.emit(line)
}

func (w *Writer) emit(line string) {
	if w.logger == nil || line == "" {
		return
	}
	w.logger.Info(w.msg, "line", line)
}
