package logger

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
)

var ErrLogNotFound = errors.New("log not found")

type LogEntry struct {
	Id        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Module    string                 `json:"module,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// scan calls fn for each decodable line in file order. Lines without an id get
// the md5 of their raw bytes so the id is stable across reads.
func (l *ZapLogger) scan(fn func(LogEntry) bool) error {
	if l.filePath == "" {
		return nil
	}
	file, err := os.Open(l.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry LogEntry
		if json.Unmarshal(scanner.Bytes(), &entry) != nil {
			continue
		}
		if entry.Id == "" {
			sum := md5.Sum(scanner.Bytes())
			entry.Id = hex.EncodeToString(sum[:])
		}
		if !fn(entry) {
			break
		}
	}
	return scanner.Err()
}

// GetLogs pages newest first. An empty level matches every entry.
func (l *ZapLogger) GetLogs(level string, limit, offset int) ([]LogEntry, error) {
	var matched []LogEntry
	err := l.scan(func(e LogEntry) bool {
		if level == "" || e.Level == level {
			matched = append(matched, e)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	page := []LogEntry{}
	for i := len(matched) - 1 - offset; i >= 0 && len(page) < limit; i-- {
		page = append(page, matched[i])
	}
	return page, nil
}

func (l *ZapLogger) GetLogById(id string) (*LogEntry, error) {
	var found *LogEntry
	err := l.scan(func(e LogEntry) bool {
		if e.Id == id {
			found = &e
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrLogNotFound
	}
	return found, nil
}
