package store

import (
	"context"
	"sync"
	"time"

	"github.com/BayRex1/bayrex-apk/internal/models"
)

// MemoryStore keeps the catalog in process memory. Contents are lost on
// restart; the id sequence only moves forward for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	apps   []models.App
	nextID uint
	now    func() time.Time
}

// NewMemoryStore returns an empty store whose first id is 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, app *models.App) error {
	if err := prepareNew(app); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	app.ID = s.nextID
	s.nextID++
	app.CreatedAt = now
	app.UpdatedAt = now
	s.apps = append(s.apps, app.Clone())
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uint) (*models.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	app := s.apps[i].Clone()
	return &app, nil
}

func (s *MemoryStore) Update(_ context.Context, id uint, patch Patch) (*models.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	updated := s.apps[i].Clone()
	if err := applyPatch(&updated, patch); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now().UTC()
	s.apps[i] = updated

	out := updated.Clone()
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uint) (*models.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	deleted := s.apps[i]
	s.apps = append(s.apps[:i], s.apps[i+1:]...)
	return &deleted, nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]models.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return apply(s.apps, filter), nil
}

func (s *MemoryStore) IncrementDownloads(_ context.Context, id uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return 0, ErrNotFound
	}
	s.apps[i].Downloads++
	return s.apps[i].Downloads, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apps), nil
}

// indexOf must be called with mu held.
func (s *MemoryStore) indexOf(id uint) int {
	for i := range s.apps {
		if s.apps[i].ID == id {
			return i
		}
	}
	return -1
}
