package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophShelf/internal/models"
)

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryUserRepository()
	u := User{UserProfile: models.UserProfile{ID: "u1", Name: "Ann", Email: "Ann@X.com"}, PasswordHash: []byte("h")}

	require.NoError(t, r.CreateUser(ctx, u))
	assert.ErrorIs(t, r.CreateUser(ctx, User{UserProfile: models.UserProfile{ID: "u2", Email: "ann@x.com"}}), ErrUserExists)

	got, err := r.UserByEmail(ctx, "ann@x.COM")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	got, err = r.UserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)

	_, err = r.UserByID(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.UserByEmail(ctx, "bob@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCategoryRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryCategoryRepository()

	require.NoError(t, r.InsertCategory(ctx, "u1", models.Category{ID: "a", Name: "A"}))
	require.NoError(t, r.InsertCategory(ctx, "u1", models.Category{ID: "b", Name: "B"}))
	require.NoError(t, r.InsertCategory(ctx, "u2", models.Category{ID: "z", Name: "Z"}))

	list, err := r.ListCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{ID: "b", Name: "B"}, {ID: "a", Name: "A"}}, list)

	_, err = r.GetCategory(ctx, "u1", "z")
	assert.ErrorIs(t, err, ErrNotFound, "users only see their own categories")

	require.NoError(t, r.UpdateCategory(ctx, "u1", models.Category{ID: "a", Name: "A2", ItemCount: 3}))
	got, err := r.GetCategory(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Name)
	assert.ErrorIs(t, r.UpdateCategory(ctx, "u1", models.Category{ID: "nope"}), ErrNotFound)

	removed, err := r.DeleteCategory(ctx, "u1", "b")
	require.NoError(t, err)
	assert.Equal(t, "B", removed.Name)
	_, err = r.DeleteCategory(ctx, "u1", "b")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err = r.ListCategories(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestMemoryImageStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryImageStore()

	require.NoError(t, s.PutImage(ctx, "a.png", Image{ContentType: "image/png", Data: []byte{1}}))
	img, err := s.GetImage(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)

	require.NoError(t, s.DeleteImage(ctx, "a.png"))
	require.NoError(t, s.DeleteImage(ctx, "a.png"))
	_, err = s.GetImage(ctx, "a.png")
	assert.ErrorIs(t, err, ErrNotFound)
}
