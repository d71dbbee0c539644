// Package queue is a file-backed queue of links waiting for a run.
package queue

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Reasons an Enqueue is refused.
const (
	ReasonInvalidURL = "invalid_url"
	ReasonDuplicate  = "duplicate"
)

// Entry is one queued link.
type Entry struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	NormalisedURL string    `json:"normalisedUrl"`
	SubmittedBy   string    `json:"submittedBy,omitempty"`
	Source        string    `json:"source,omitempty"`
	OriginalText  string    `json:"originalText,omitempty"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

// Submission is a link offered to the queue.
type Submission struct {
	URL          string
	SubmittedBy  string
	Source       string
	OriginalText string
}

// EnqueueResult reports what Enqueue did.
type EnqueueResult struct {
	Added       bool   `json:"added"`
	Reason      string `json:"reason,omitempty"`
	Entry       *Entry `json:"entry,omitempty"`
	QueueLength int    `json:"queueLength"`
}

type file struct {
	Pending []Entry `json:"pending"`
}

// Queue stores pending links in a JSON file. Operations are serialized
// within the process.
type Queue struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New returns a Queue backed by path. The file is created on first write.
func New(path string) *Queue {
	return &Queue{path: path, now: func() time.Time { return time.Now().UTC() }}
}

// Path returns the backing file path.
func (q *Queue) Path() string { return q.path }

// NormaliseURL trims raw, accepts only absolute http(s) URLs, drops the
// fragment, lowercases scheme and host, and strips one trailing slash.
func NormaliseURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return strings.TrimSuffix(u.String(), "/"), true
}

// Enqueue adds a link unless it is invalid or already pending.
func (q *Queue) Enqueue(sub Submission) (EnqueueResult, error) {
	norm, ok := NormaliseURL(sub.URL)
	if !ok {
		return EnqueueResult{Reason: ReasonInvalidURL}, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	f := q.load()
	if hasDuplicate(f.Pending, norm) {
		return EnqueueResult{Reason: ReasonDuplicate, QueueLength: len(f.Pending)}, nil
	}

	source := sub.Source
	if source == "" {
		source = "cli"
	}
	entry := Entry{
		ID:            uuid.New().String(),
		URL:           norm,
		NormalisedURL: norm,
		SubmittedBy:   sub.SubmittedBy,
		Source:        source,
		OriginalText:  sub.OriginalText,
		ReceivedAt:    q.now(),
	}
	f.Pending = append(f.Pending, entry)
	if err := q.save(f); err != nil {
		return EnqueueResult{}, err
	}

	zap.L().Info("queue: link enqueued",
		zap.String("url", entry.URL),
		zap.String("submitted_by", entry.SubmittedBy),
		zap.Int("queue_length", len(f.Pending)),
	)
	return EnqueueResult{Added: true, Entry: &entry, QueueLength: len(f.Pending)}, nil
}

// PopPending removes and returns up to limit entries from the front of the
// queue, and the number left behind. A non-positive limit takes everything.
func (q *Queue) PopPending(limit int) ([]Entry, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f := q.load()
	if len(f.Pending) == 0 {
		return nil, 0, nil
	}
	n := len(f.Pending)
	if limit > 0 && limit < n {
		n = limit
	}
	entries := append([]Entry(nil), f.Pending[:n]...)
	f.Pending = f.Pending[n:]
	if err := q.save(f); err != nil {
		return nil, 0, err
	}

	zap.L().Info("queue: drained", zap.Int("drained", len(entries)), zap.Int("remaining", len(f.Pending)))
	return entries, len(f.Pending), nil
}

// PushEntries appends entries back onto the queue, skipping invalid and
// already-pending links, and returns the new queue length.
func (q *Queue) PushEntries(entries []Entry) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f := q.load()
	for _, e := range entries {
		norm := e.NormalisedURL
		if norm == "" {
			var ok bool
			if norm, ok = NormaliseURL(e.URL); !ok {
				continue
			}
		}
		if hasDuplicate(f.Pending, norm) {
			continue
		}
		e.NormalisedURL = norm
		f.Pending = append(f.Pending, e)
	}
	if err := q.save(f); err != nil {
		return 0, err
	}
	return len(f.Pending), nil
}

// Pending returns the queued entries without removing them.
func (q *Queue) Pending() ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load().Pending, nil
}

// load reads the queue file. A missing or corrupt file reads as empty.
func (q *Queue) load() file {
	data, err := os.ReadFile(q.path)
	if errors.Is(err, fs.ErrNotExist) {
		return file{Pending: []Entry{}}
	}
	if err != nil {
		zap.L().Warn("queue: read failed, treating as empty", zap.String("path", q.path), zap.Error(err))
		return file{Pending: []Entry{}}
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		zap.L().Warn("queue: corrupt file, resetting", zap.String("path", q.path), zap.Error(err))
		return file{Pending: []Entry{}}
	}
	if f.Pending == nil {
		f.Pending = []Entry{}
	}
	return f
}

func (q *Queue) save(f file) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return eris.Wrap(err, "queue: create directory")
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return eris.Wrap(err, "queue: marshal")
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "queue: write")
	}
	return eris.Wrap(os.Rename(tmp, q.path), "queue: rename")
}

func hasDuplicate(pending []Entry, norm string) bool {
	for _, e := range pending {
		if e.NormalisedURL == norm {
			return true
		}
	}
	return false
}
