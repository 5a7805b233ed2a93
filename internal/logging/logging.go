// Package logging appends timestamped, level-tagged lines to named log
// streams and optionally echoes them to the operator.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Level tags a log line. Callers may pass custom levels beyond the three
// predefined ones.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const (
	// StreamGeneral is the default stream every logger carries.
	StreamGeneral = "general"
	// StreamAll fans a line out to every configured stream.
	StreamAll = "all"
)

// Config names the output file per stream and sets the default echo
// behavior.
type Config struct {
	Streams map[string]string
	Quiet   bool
}

// Dependencies allow test overrides for the echo writer and clock.
type Dependencies struct {
	Echo io.Writer
	Now  func() time.Time
}

// Logger appends one line per selected stream. An unknown stream name is
// a configuration error the calling process should treat as fatal.
type Logger struct {
	streams map[string]string
	quiet   bool
	echo    io.Writer
	now     func() time.Time
}

// New builds a logger. A missing general stream is a configuration error.
func New(cfg Config, deps Dependencies) (*Logger, error) {
	if len(cfg.Streams) == 0 {
		return nil, fmt.Errorf("at least the %q stream must be configured", StreamGeneral)
	}
	if _, ok := cfg.Streams[StreamGeneral]; !ok {
		return nil, fmt.Errorf("stream %q must be configured", StreamGeneral)
	}
	if _, ok := cfg.Streams[StreamAll]; ok {
		return nil, fmt.Errorf("%q is a reserved stream selector", StreamAll)
	}

	echo := deps.Echo
	if echo == nil {
		echo = os.Stderr
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	streams := make(map[string]string, len(cfg.Streams))
	for name, path := range cfg.Streams {
		streams[name] = path
	}

	return &Logger{
		streams: streams,
		quiet:   cfg.Quiet,
		echo:    echo,
		now:     now,
	}, nil
}

// Log appends msg to the selected stream ("" selects general, StreamAll
// selects every stream) and echoes it unless quiet.
func (l *Logger) Log(stream string, level Level, quiet bool, msg string) error {
	if stream == "" {
		stream = StreamGeneral
	}
	if level == "" {
		level = LevelInfo
	}

	line := fmt.Sprintf("%s [%s] %s\n", l.now().UTC().Format(time.RFC3339), level, msg)

	var targets []string
	if stream == StreamAll {
		for _, path := range l.streams {
			targets = append(targets, path)
		}
	} else {
		path, ok := l.streams[stream]
		if !ok {
			return fmt.Errorf("unknown log stream %q", stream)
		}
		targets = []string{path}
	}

	for _, path := range targets {
		if err := appendLine(path, line); err != nil {
			return fmt.Errorf("append to stream file %q: %w", path, err)
		}
	}

	if !quiet && !l.quiet {
		fmt.Fprint(l.echo, line)
	}
	return nil
}

// Infof, Warnf, and Errorf write to the general stream and satisfy the
// config store's logger contract. Append failures here surface on the
// echo writer only.
func (l *Logger) Infof(format string, args ...any) {
	l.logf(LevelInfo, format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logf(LevelWarn, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logf(LevelError, format, args...)
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if err := l.Log(StreamGeneral, level, l.quiet, fmt.Sprintf(format, args...)); err != nil {
		fmt.Fprintf(l.echo, "logging failed: %v\n", err)
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
