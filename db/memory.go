package db

import (
	"sync"

	"github.com/earshot-audio/earshot/models"
)

// MemoryStore is an in-memory Store used by tests and throwaway
// sessions where nothing needs to survive a restart.
type MemoryStore struct {
	mu          sync.Mutex
	preferences map[string]string
	follows     []models.Follow
	categories  []models.Category
	scores      []models.CategoryScore
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		preferences: map[string]string{},
	}
}

func (ms *MemoryStore) GetPreference(key string) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.preferences[key], nil
}

func (ms *MemoryStore) SetPreference(key, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.preferences[key] = value
	return nil
}

func (ms *MemoryStore) DeletePreference(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.preferences, key)
	return nil
}

func (ms *MemoryStore) CachedFollows() ([]models.Follow, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]models.Follow(nil), ms.follows...), nil
}

func (ms *MemoryStore) ReplaceFollows(follows []models.Follow) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.follows = append([]models.Follow(nil), follows...)
	return nil
}

func (ms *MemoryStore) CachedCategories() ([]models.Category, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]models.Category(nil), ms.categories...), nil
}

func (ms *MemoryStore) ReplaceCategories(categories []models.Category) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.categories = append([]models.Category(nil), categories...)
	return nil
}

func (ms *MemoryStore) CachedCategoryScores() ([]models.CategoryScore, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]models.CategoryScore(nil), ms.scores...), nil
}

func (ms *MemoryStore) ReplaceCategoryScores(scores []models.CategoryScore) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.scores = append([]models.CategoryScore(nil), scores...)
	return nil
}

func (ms *MemoryStore) Reset() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.preferences = map[string]string{}
	ms.follows = nil
	ms.categories = nil
	ms.scores = nil
	return nil
}
