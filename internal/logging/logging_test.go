package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Unix(1730000000, 0).UTC()
}

func newTestLogger(t *testing.T, quiet bool) (*Logger, string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	echo := &bytes.Buffer{}
	logger, err := New(Config{
		Streams: map[string]string{
			StreamGeneral: filepath.Join(dir, "general.log"),
			"monitor":     filepath.Join(dir, "monitor.log"),
		},
		Quiet: quiet,
	}, Dependencies{Echo: echo, Now: fixedNow})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logger, dir, echo
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestLogAppendsTimestampedLine(t *testing.T) {
	logger, dir, echo := newTestLogger(t, false)

	if err := logger.Log(StreamGeneral, LevelInfo, false, "agent registered"); err != nil {
		t.Fatalf("Log returned error: %v", err)
	}
	if err := logger.Log("", "", false, "default stream and level"); err != nil {
		t.Fatalf("Log returned error: %v", err)
	}

	content := readLog(t, filepath.Join(dir, "general.log"))
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines got %d: %q", len(lines), content)
	}
	want := "2024-10-27T03:33:20Z [INFO] agent registered"
	if lines[0] != want {
		t.Fatalf("expected %q got %q", want, lines[0])
	}
	if !strings.Contains(lines[1], "[INFO] default stream and level") {
		t.Fatalf("defaults not applied: %q", lines[1])
	}
	if !strings.Contains(echo.String(), "agent registered") {
		t.Fatalf("expected operator echo, got %q", echo.String())
	}
}

func TestLogFanOut(t *testing.T) {
	logger, dir, _ := newTestLogger(t, false)

	if err := logger.Log(StreamAll, LevelWarn, false, "fan out"); err != nil {
		t.Fatalf("Log returned error: %v", err)
	}

	for _, name := range []string{"general.log", "monitor.log"} {
		content := readLog(t, filepath.Join(dir, name))
		if !strings.Contains(content, "[WARN] fan out") {
			t.Fatalf("stream %s missing line: %q", name, content)
		}
	}
}

func TestLogUnknownStream(t *testing.T) {
	logger, _, _ := newTestLogger(t, false)

	if err := logger.Log("nope", LevelInfo, false, "x"); err == nil {
		t.Fatalf("expected error for unknown stream")
	}
}

func TestLogQuiet(t *testing.T) {
	logger, dir, echo := newTestLogger(t, false)

	if err := logger.Log(StreamGeneral, LevelError, true, "silent"); err != nil {
		t.Fatalf("Log returned error: %v", err)
	}
	if echo.Len() != 0 {
		t.Fatalf("quiet log echoed: %q", echo.String())
	}
	if !strings.Contains(readLog(t, filepath.Join(dir, "general.log")), "[ERROR] silent") {
		t.Fatalf("quiet log should still append to the stream")
	}

	quietLogger, qdir, qecho := newTestLogger(t, true)
	quietLogger.Infof("via config quiet")
	if qecho.Len() != 0 {
		t.Fatalf("config quiet echoed: %q", qecho.String())
	}
	if !strings.Contains(readLog(t, filepath.Join(qdir, "general.log")), "via config quiet") {
		t.Fatalf("config quiet should still append")
	}
}

func TestLogCustomLevel(t *testing.T) {
	logger, dir, _ := newTestLogger(t, false)

	if err := logger.Log(StreamGeneral, Level("AUDIT"), false, "custom"); err != nil {
		t.Fatalf("Log returned error: %v", err)
	}
	if !strings.Contains(readLog(t, filepath.Join(dir, "general.log")), "[AUDIT] custom") {
		t.Fatalf("custom level missing")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}, Dependencies{}); err == nil {
		t.Fatalf("expected error for empty stream config")
	}
	if _, err := New(Config{Streams: map[string]string{"other": "x.log"}}, Dependencies{}); err == nil {
		t.Fatalf("expected error when general stream missing")
	}
	if _, err := New(Config{Streams: map[string]string{
		StreamGeneral: "g.log",
		StreamAll:     "a.log",
	}}, Dependencies{}); err == nil {
		t.Fatalf("expected error for reserved stream name")
	}
}
