package repository

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/atinyakov/GophShelf/internal/models"
)

// Errors returned by the in-memory repositories.
var (
	ErrUserExists = errors.New("user already exists")
	ErrNotFound   = errors.New("not found")
)

// User is a stored account.
type User struct {
	models.UserProfile
	PasswordHash []byte
}

// MemoryUserRepository keeps accounts in memory, keyed by lower-cased email.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]User
	byID    map[string]string
}

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byEmail: make(map[string]User),
		byID:    make(map[string]string),
	}
}

// CreateUser stores u unless its email is taken.
func (r *MemoryUserRepository) CreateUser(_ context.Context, u User) error {
	key := strings.ToLower(u.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[key]; ok {
		return ErrUserExists
	}
	r.byEmail[key] = u
	r.byID[u.ID] = key
	return nil
}

// UserByEmail looks an account up by email, case-insensitively.
func (r *MemoryUserRepository) UserByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// UserByID looks an account up by id.
func (r *MemoryUserRepository) UserByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.byEmail[key], nil
}

// MemoryCategoryRepository keeps each user's categories in memory, newest first.
type MemoryCategoryRepository struct {
	mu     sync.RWMutex
	byUser map[string][]models.Category
}

// NewMemoryCategoryRepository returns an empty repository.
func NewMemoryCategoryRepository() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{byUser: make(map[string][]models.Category)}
}

// ListCategories returns the user's categories, newest first.
func (r *MemoryCategoryRepository) ListCategories(_ context.Context, userID string) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Category{}, r.byUser[userID]...), nil
}

// GetCategory returns one of the user's categories.
func (r *MemoryCategoryRepository) GetCategory(_ context.Context, userID, id string) (models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.byUser[userID]
	if i := indexOf(items, id); i >= 0 {
		return items[i], nil
	}
	return models.Category{}, ErrNotFound
}

// InsertCategory stores c as the user's newest category.
func (r *MemoryCategoryRepository) InsertCategory(_ context.Context, userID string, c models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = slices.Insert(r.byUser[userID], 0, c)
	return nil
}

// UpdateCategory replaces the stored category with the same id.
func (r *MemoryCategoryRepository) UpdateCategory(_ context.Context, userID string, c models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.byUser[userID]
	i := indexOf(items, c.ID)
	if i < 0 {
		return ErrNotFound
	}
	items[i] = c
	return nil
}

// DeleteCategory removes the category and returns what was removed.
func (r *MemoryCategoryRepository) DeleteCategory(_ context.Context, userID, id string) (models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.byUser[userID]
	i := indexOf(items, id)
	if i < 0 {
		return models.Category{}, ErrNotFound
	}
	c := items[i]
	r.byUser[userID] = slices.Delete(items, i, i+1)
	return c, nil
}

func indexOf(items []models.Category, id string) int {
	return slices.IndexFunc(items, func(c models.Category) bool { return c.ID == id })
}

// Image is a stored image file.
type Image struct {
	ContentType string
	Data        []byte
}

// MemoryImageStore keeps uploaded images in memory, keyed by file name.
type MemoryImageStore struct {
	mu    sync.RWMutex
	files map[string]Image
}

// NewMemoryImageStore returns an empty store.
func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{files: make(map[string]Image)}
}

// PutImage stores an image under name, replacing any previous one.
func (s *MemoryImageStore) PutImage(_ context.Context, name string, img Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = img
	return nil
}

// GetImage returns the image stored under name.
func (s *MemoryImageStore) GetImage(_ context.Context, name string) (Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.files[name]
	if !ok {
		return Image{}, ErrNotFound
	}
	return img, nil
}

// DeleteImage removes the image stored under name. Missing images are not an error.
func (s *MemoryImageStore) DeleteImage(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, name)
	return nil
}
