package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrChunkGap        = errors.New("chunk leaves a gap")
	ErrSessionClosed   = errors.New("session already finalized")
)

// Session accumulates the frames of one remote export on disk.
type Session struct {
	ID          string
	Dir         string
	AudioPath   string
	AudioFormat string
	CreatedAt   time.Time

	mu       sync.Mutex
	appended int
	closed   bool
	lastSeen time.Time
}

// Appended is the number of frames stored so far.
func (s *Session) Appended() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appended
}

// FramePattern is the image2 pattern of the stored frames.
func (s *Session) FramePattern() string {
	return filepath.Join(s.Dir, "frames", "%06d.jpg")
}

// Append stores frames that start at index start. Frames the session
// already holds are skipped, so a retried batch is acknowledged without
// being stored twice. A batch starting past the end is rejected.
func (s *Session) Append(start int, frames [][]byte) (appended int, duplicate bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	if s.closed {
		return s.appended, false, ErrSessionClosed
	}
	if start < 0 || start > s.appended {
		return s.appended, false, fmt.Errorf("%w: start %d, session holds %d", ErrChunkGap, start, s.appended)
	}
	skip := s.appended - start
	if skip >= len(frames) {
		return s.appended, len(frames) > 0, nil
	}

	for _, data := range frames[skip:] {
		name := fmt.Sprintf("%06d.jpg", s.appended)
		if err := os.WriteFile(filepath.Join(s.Dir, "frames", name), data, 0644); err != nil {
			return s.appended, false, fmt.Errorf("failed to store frame %d: %w", s.appended, err)
		}
		s.appended++
	}
	return s.appended, skip > 0, nil
}

// Close fences the session: later Appends fail with ErrSessionClosed. It
// waits for an Append in progress and returns the final frame count.
func (s *Session) Close() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.appended
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store keeps the open sessions of one server.
type Store struct {
	baseDir string
	ttl     time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(baseDir string, ttl time.Duration) *Store {
	return &Store{baseDir: baseDir, ttl: ttl, sessions: make(map[string]*Session)}
}

// Create opens a session directory and stores the soundtrack in it.
func (st *Store) Create(audioFormat string, audio io.Reader) (*Session, error) {
	id := uuid.New().String()
	dir := filepath.Join(st.baseDir, "slidesync-"+id)
	if err := os.MkdirAll(filepath.Join(dir, "frames"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	name := "audio"
	if audioFormat != "" {
		name += "." + audioFormat
	}
	audioPath := filepath.Join(dir, name)
	f, err := os.Create(audioPath)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	if _, err := io.Copy(f, audio); err != nil {
		f.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	now := time.Now()
	s := &Session{ID: id, Dir: dir, AudioPath: audioPath, AudioFormat: audioFormat, CreatedAt: now, lastSeen: now}
	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	return s, nil
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Take removes the session from the store and hands it to the caller, who
// then owns its directory. Only one caller can take a session.
func (st *Store) Take(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(st.sessions, id)
	return s, nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than the TTL and deletes their files.
// It returns the ids removed.
func (st *Store) Sweep(now time.Time) []string {
	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) > st.ttl {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, s := range expired {
		s.Close()
		os.RemoveAll(s.Dir)
		ids = append(ids, s.ID)
	}
	return ids
}
