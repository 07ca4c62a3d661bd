package changelog

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// FileSink appends changelog lines to a single UTF-8 text file, the
// sibling "<primary>.log" / "<name>.log" file named in the archive
// layout. Watermark resolution uses a bounded reverse scan rather than
// parsing the whole file on every call, since archives are expected to
// grow large and are append-only.
type FileSink struct {
	path string
	file *os.File
	now  func() time.Time
}

// OpenFileSink opens (creating if necessary) the changelog file at path
// for appending.
func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open changelog %s: %w", path, err)
	}
	return &FileSink{path: path, file: f, now: time.Now}, nil
}

func (s *FileSink) writeLine(line string) error {
	if _, err := s.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append changelog %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSink) AppendHeader(kind Kind, fields ...string) error {
	return s.writeLine(FormatHeader(s.now(), kind, fields...))
}

func (s *FileSink) AppendUpdate(txnID int64, field, old, new string) error {
	return s.writeLine(FormatUpdate(s.now(), txnID, field, old, new))
}

func (s *FileSink) AppendApply(txnID, ruleID int64, field, old, new, status string) error {
	return s.writeLine(FormatApply(s.now(), txnID, ruleID, field, old, new, status))
}

// reverseScanChunk is how many trailing lines are first scanned looking
// for the most recent watermark header; on a miss the window doubles
// until the whole file has been covered. Watermark headers are written
// once per workflow, so they are expected to be close to the tail even
// of a long-lived archive.
const reverseScanChunk = 4096

func (s *FileSink) Watermark() (time.Time, bool, error) {
	for n := reverseScanChunk; ; n *= 2 {
		lines, err := tailLines(s.path, n, 0)
		if err != nil {
			return time.Time{}, false, err
		}
		for i := len(lines) - 1; i >= 0; i-- {
			e, err := Parse(lines[i])
			if err != nil {
				continue
			}
			if IsWatermarkKind(e.Kind) {
				return e.Timestamp, true, nil
			}
		}
		if len(lines) < n {
			return time.Time{}, false, nil
		}
	}
}

func (s *FileSink) Close() error { return s.file.Close() }

// tailLines returns up to n trailing non-empty lines of the file at
// path. It always reads the whole file; maxBytes is not used. Callers
// bound n so that only the tail is handed on for parsing.
func tailLines(path string, n int, maxBytes int64) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open changelog %s: %w", path, err)
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		all = append(all, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan changelog %s: %w", path, err)
	}
	if len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}
