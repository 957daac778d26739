// Package postlog keeps the append-only CSV log of published channel posts.
package postlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"aichannel-bot/internal/database"
	"aichannel-bot/internal/database/models"

	"github.com/charmbracelet/log"
)

// Columns is the CSV header, in file order.
var Columns = []string{"message_id", "text", "timestamp_iso", "reactions"}

// Record is one published post.
type Record struct {
	MessageID int
	Text      string
	// Timestamp is zero when the stored value could not be parsed.
	Timestamp time.Time
	Reactions int
	// Source is only mirrored to MongoDB, the CSV has no column for it.
	Source string
}

// HasTimestamp reports whether the record carries a usable publication time.
func (r Record) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

// Store appends and reads post records in a CSV file.
type Store struct {
	path      string
	channelID int64
	mirror    database.PostLogger

	mu sync.Mutex
}

// NewStore creates a store for the CSV file at path. mirror may be nil.
func NewStore(path string, channelID int64, mirror database.PostLogger) *Store {
	return &Store{path: path, channelID: channelID, mirror: mirror}
}

// Path returns the CSV file location.
func (s *Store) Path() string {
	return s.path
}

// Append writes one record, creating the file with its header when it does not exist yet.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create post log dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open post log %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat post log %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Columns); err != nil {
			return fmt.Errorf("write post log header: %w", err)
		}
	}
	row := []string{
		strconv.Itoa(rec.MessageID),
		rec.Text,
		rec.Timestamp.UTC().Format(time.RFC3339),
		strconv.Itoa(rec.Reactions),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write post log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush post log: %w", err)
	}
	log.Infof("[PostLog] Post message_id=%d logged to %s", rec.MessageID, s.path)

	if s.mirror != nil {
		entry := models.PostLog{
			ChannelID:   s.channelID,
			MessageID:   rec.MessageID,
			Text:        rec.Text,
			Source:      rec.Source,
			Reactions:   rec.Reactions,
			PublishedAt: rec.Timestamp.UTC(),
		}
		if err := s.mirror.LogPublishedPost(entry); err != nil {
			log.Warnf("[PostLog] Failed to mirror post %d to MongoDB: %v", rec.MessageID, err)
		}
	}
	return nil
}

// ReadAll returns every record in file order. A missing or empty file yields no records.
func (s *Store) ReadAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warnf("[PostLog] Log file %s not found, no posts yet", s.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open post log %s: %w", s.path, err)
	}
	defer f.Close()

	return Decode(f)
}

// Top returns up to n records with the most reactions, highest first. Ties keep file order.
func (s *Store) Top(n int) ([]Record, error) {
	records, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Reactions > records[j].Reactions
	})
	if n >= 0 && len(records) > n {
		records = records[:n]
	}
	return records, nil
}

// Since returns records published strictly after t. Records without a timestamp are skipped.
func (s *Store) Since(t time.Time) ([]Record, error) {
	records, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range records {
		if rec.HasTimestamp() && rec.Timestamp.After(t) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Decode parses a post log in CSV form. Columns are located by header name.
func Decode(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read post log header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("post log is missing column %q", col)
		}
	}

	field := func(row []string, col string) string {
		i := index[col]
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read post log line %d: %w", line, err)
		}
		rec := Record{
			MessageID: parseIntOrZero(field(row, "message_id")),
			Text:      field(row, "text"),
			Reactions: parseIntOrZero(field(row, "reactions")),
		}
		if ts, ok := ParseTimestamp(field(row, "timestamp_iso")); ok {
			rec.Timestamp = ts
		}
		records = append(records, rec)
	}
	return records, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp accepts RFC 3339 and naive ISO-8601 values. Naive values are taken as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parseIntOrZero also accepts float notation such as "3.0".
func parseIntOrZero(value string) int {
	value = strings.TrimSpace(value)
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}
