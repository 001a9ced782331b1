package service

import (
	"errors"
	"log"
	"sync"
	"time"

	"vibeboard-server/models"

	"gorm.io/gorm"
)

// SessionSaveInterval is how often dirty composer snapshots reach the
// database. Short, so a crash loses at most half a second of typing.
const SessionSaveInterval = 500 * time.Millisecond

// SessionSaver buffers composer snapshots in memory and flushes dirty ones to
// the database on a fixed interval. Snapshots with no meaningful content are
// never persisted.
type SessionSaver struct {
	db *gorm.DB

	mu    sync.Mutex
	dirty map[string]models.SessionSnapshot

	stop chan struct{}
	once sync.Once
}

func NewSessionSaver(db *gorm.DB) *SessionSaver {
	return &SessionSaver{
		db:    db,
		dirty: make(map[string]models.SessionSnapshot),
		stop:  make(chan struct{}),
	}
}

func (s *SessionSaver) Start() {
	go func() {
		ticker := time.NewTicker(SessionSaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				s.Flush()
				return
			case <-ticker.C:
				s.Flush()
			}
		}
	}()
}

func (s *SessionSaver) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// Put records the latest snapshot for a project; it reaches the database on
// the next flush tick.
func (s *SessionSaver) Put(snap models.SessionSnapshot) {
	if !snap.HasContent() {
		return
	}
	snap.Dirty = true
	snap.SavedAt = time.Now()
	s.mu.Lock()
	s.dirty[snap.ProjectID] = snap
	s.mu.Unlock()
}

// Flush writes all buffered snapshots. Failures keep the snapshot buffered
// for the next tick.
func (s *SessionSaver) Flush() {
	s.mu.Lock()
	pending := s.dirty
	s.dirty = make(map[string]models.SessionSnapshot)
	s.mu.Unlock()

	for projectID, snap := range pending {
		snap.Dirty = false
		if err := models.UpsertSessionSnapshot(s.db, &snap); err != nil {
			log.Printf("session snapshot flush for project %s failed: %v", projectID, err)
			s.mu.Lock()
			if _, replaced := s.dirty[projectID]; !replaced {
				snap.Dirty = true
				s.dirty[projectID] = snap
			}
			s.mu.Unlock()
		}
	}
}

// Load returns the recoverable snapshot for a project, preferring the
// in-memory copy over the persisted one. Returns nil when there is nothing
// worth recovering.
func (s *SessionSaver) Load(projectID string) (*models.SessionSnapshot, error) {
	s.mu.Lock()
	if snap, ok := s.dirty[projectID]; ok {
		s.mu.Unlock()
		return &snap, nil
	}
	s.mu.Unlock()

	snap, err := models.GetSessionSnapshot(s.db, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !snap.HasContent() {
		return nil, nil
	}
	return snap, nil
}

// Dismiss discards the snapshot entirely; the recovery affordance will not
// come back for it.
func (s *SessionSaver) Dismiss(projectID string) error {
	s.mu.Lock()
	delete(s.dirty, projectID)
	s.mu.Unlock()
	return models.DeleteSessionSnapshot(s.db, projectID)
}
