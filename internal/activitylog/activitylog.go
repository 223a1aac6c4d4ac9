// Package activitylog appends reconciliation outcomes to a flat text log and
// resolves the most recent entry for display.
package activitylog

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// timestampFormat is the layout of the line prefix.
const timestampFormat = "2006-01-02 15:04:05"

// entryMarker identifies reconciliation lines during the backward scan.
const entryMarker = "Response: {"

// tailReadSize bounds how much of the log the display path reads. The newest
// entries sit at the end of the file, so 64 KiB is always enough to hold the
// most recent one regardless of how large the log has grown.
const tailReadSize = 64 * 1024

// Entry is one parsed reconciliation record, used for display only.
type Entry struct {
	ProfileName   string `json:"profileName"`
	Domain        string `json:"domain"`
	IPAddress     string `json:"ipAddress"`
	Timestamp     string `json:"timestamp"`
	CallStatus    string `json:"callStatus"`    // "Success" or "Failure"
	RunningStatus string `json:"runningStatus"` // filled in by the caller
}

var headerPattern = regexp.MustCompile(`^(.*?): Profile: ([^,]+), Domain: ([^,]+), IP: ([^,]*), Response: `)

// Log is an append-only activity log backed by one text file.
type Log struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates a Log writing to the given path. The file is created on first
// append.
func New(path string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{path: path, logger: logger}
}

// Append writes a single timestamped line. I/O failures are logged and
// swallowed: logging must never block or crash a reconciliation pass.
func (l *Log) Append(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.logger.Error("failed to open activity log", "path", l.path, "error", err)
		return
	}
	defer func() {
		//nolint:errcheck
		f.Close()
	}()

	line := fmt.Sprintf("%s: %s\n", time.Now().Format(timestampFormat), message)
	if _, err := f.WriteString(line); err != nil {
		l.logger.Error("failed to append to activity log", "path", l.path, "error", err)
	}
}

// AppendOutcome formats and appends one reconciliation outcome.
func (l *Log) AppendOutcome(profileName, domain, ip, response string) {
	l.Append(fmt.Sprintf("Profile: %s, Domain: %s, IP: %s, Response: %s", profileName, domain, ip, response))
}

// ReadLastEntry scans the log from the end for the most recent reconciliation
// line and parses it. Only the tail of the file is read, so the display path
// stays cheap however large the log grows. It returns nil if the log is
// absent, empty, or the most recent reconciliation line cannot be parsed.
// Lines without a response payload are skipped, so stray text never masks an
// older entry.
func (l *Log) ReadLastEntry() *Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := readTail(l.path, tailReadSize)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Error("failed to read activity log", "path", l.path, "error", err)
		}
		return nil
	}

	lines := strings.Split(string(data), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !strings.Contains(line, entryMarker) {
			continue
		}
		return parseLine(line)
	}

	return nil
}

// readTail returns at most n bytes from the end of the file. A line cut in
// half at the window edge fails the header match and is skipped by the scan.
func readTail(path string, n int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		//nolint:errcheck
		f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var offset int64
	if info.Size() > n {
		offset = info.Size() - n
	}

	buf := make([]byte, info.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

// parseLine extracts an Entry from one log line. Returns nil when the header
// or the embedded JSON fragment does not parse.
func parseLine(line string) *Entry {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}

	jsonPart := line[len(m[0]):]
	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal([]byte(jsonPart), &result); err != nil {
		return nil
	}

	status := "Failure"
	if result.Success {
		status = "Success"
	}

	return &Entry{
		Timestamp:   strings.TrimSpace(m[1]),
		ProfileName: strings.TrimSpace(m[2]),
		Domain:      strings.TrimSpace(m[3]),
		IPAddress:   strings.TrimSpace(m[4]),
		CallStatus:  status,
	}
}
