// Package store owns the mutable News collection and its persistence.
//
// Every mutating call serializes the full collection to disk before
// returning. A failed write is reported as an error that callers treat
// as fatal: continuing with state that cannot be persisted would risk
// silent data loss, which is worse than a crash-restart.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"news_bot/internal/model"
)

// Sentinel errors for store lookups.
var (
	ErrDuplicateID = errors.New("news id already present")
	ErrNotFound    = errors.New("news id not found")
)

// NewsStore is a thread-safe collection of News entries keyed by the id
// of the originating message. All methods take the internal lock for the
// duration of the in-memory operation and the disk write; callers must
// not hold results across their own chat I/O expecting them to stay
// fresh; lookups return clones.
type NewsStore struct {
	mu   sync.Mutex
	path string
	news map[string]*model.News
}

// Open loads the store file at path, or starts empty if it does not
// exist yet.
func Open(path string) (*NewsStore, error) {
	s := &NewsStore{
		path: path,
		news: make(map[string]*model.News),
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-controlled path
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if err := json.Unmarshal(data, &s.news); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", path, err)
	}
	return s, nil
}

// Add inserts a new entry and persists. Fails with ErrDuplicateID if the
// id is already present.
func (s *NewsStore) Add(news *model.News) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.news[news.ID]; ok {
		return fmt.Errorf("add %s: %w", news.ID, ErrDuplicateID)
	}
	s.news[news.ID] = news.Clone()
	return s.persist()
}

// Remove deletes the entry with the given id, persists, and returns the
// removed entry so callers can compose a confirmation message.
func (s *NewsStore) Remove(id string) (*model.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	news, ok := s.news[id]
	if !ok {
		return nil, fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	delete(s.news, id)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return news, nil
}

// ByMessageID returns a copy of the entry whose originating message has
// the given id.
func (s *NewsStore) ByMessageID(id string) (*model.News, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	news, ok := s.news[id]
	if !ok {
		return nil, false
	}
	return news.Clone(), true
}

// ByAnnotationID scans all entries for one whose tag or media maps
// contain the given annotation id. O(n) over the collection, which is
// bounded by weekly submission volume.
func (s *NewsStore) ByAnnotationID(annotationID string) (*model.News, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.sortedIDs() {
		if s.news[id].HasAnnotation(annotationID) {
			return s.news[id].Clone(), true
		}
	}
	return nil, false
}

// FindNearestByReporterAndTime returns the same-reporter entry whose
// timestamp is closest to the given one. Used to attach media messages
// that cannot carry an explicit reply reference. Scanning in ascending
// id order makes the tie-break deterministic.
func (s *NewsStore) FindNearestByReporterAndTime(reporterID string, timestamp time.Time) (*model.News, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *model.News
	var bestDelta time.Duration
	for _, id := range s.sortedIDs() {
		news := s.news[id]
		if news.ReporterID != reporterID {
			continue
		}
		delta := news.Timestamp.Sub(timestamp)
		if delta < 0 {
			delta = -delta
		}
		if best == nil || delta < bestDelta {
			best = news
			bestDelta = delta
		}
	}
	if best == nil {
		return nil, false
	}
	return best.Clone(), true
}

// Mutate applies fn to the stored entry with the given id under the lock
// and persists the result. This is the only way callers change a stored
// entry; lookups hand out clones.
func (s *NewsStore) Mutate(id string, fn func(*model.News)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	news, ok := s.news[id]
	if !ok {
		return fmt.Errorf("mutate %s: %w", id, ErrNotFound)
	}
	fn(news)
	return s.persist()
}

// List returns a snapshot copy of all entries. Callers must not assume
// any ordering.
func (s *NewsStore) List() []*model.News {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.News, 0, len(s.news))
	for _, news := range s.news {
		out = append(out, news.Clone())
	}
	return out
}

// Len returns the number of stored entries.
func (s *NewsStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.news)
}

// Clear empties the collection and persists.
func (s *NewsStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.news = make(map[string]*model.News)
	return s.persist()
}

// persist writes the whole collection as one JSON object keyed by News
// id. Callers hold s.mu.
func (s *NewsStore) persist() error {
	data, err := json.MarshalIndent(s.news, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}

func (s *NewsStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.news))
	for id := range s.news {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
