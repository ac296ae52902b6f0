package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/atinyakov/GophShelf/internal/models"
	"github.com/atinyakov/GophShelf/internal/repository"
)

// UploadsPrefix is the path hosted images are served under.
const UploadsPrefix = "/uploads/"

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// CategoryRepository stores categories per user.
type CategoryRepository interface {
	ListCategories(ctx context.Context, userID string) ([]models.Category, error)
	GetCategory(ctx context.Context, userID, id string) (models.Category, error)
	InsertCategory(ctx context.Context, userID string, c models.Category) error
	UpdateCategory(ctx context.Context, userID string, c models.Category) error
	DeleteCategory(ctx context.Context, userID, id string) (models.Category, error)
}

// ImageRepository stores uploaded images.
type ImageRepository interface {
	PutImage(ctx context.Context, name string, img repository.Image) error
	GetImage(ctx context.Context, name string) (repository.Image, error)
	DeleteImage(ctx context.Context, name string) error
}

// CategoryInput is a create or update request as received. ItemCount is
// the raw form value.
type CategoryInput struct {
	Name      string
	ItemCount string
	ImageData []byte
	HasImage  bool
}

// CategoryService implements category CRUD for one user at a time.
type CategoryService struct {
	repo     CategoryRepository
	images   ImageRepository
	maxImage int64
}

// NewCategoryService returns a service accepting images up to maxImage bytes.
func NewCategoryService(repo CategoryRepository, images ImageRepository, maxImage int64) *CategoryService {
	return &CategoryService{repo: repo, images: images, maxImage: maxImage}
}

// MaxImageBytes is the largest accepted image.
func (s *CategoryService) MaxImageBytes() int64 {
	return s.maxImage
}

// List returns the user's categories, newest first.
func (s *CategoryService) List(ctx context.Context, userID string) ([]models.Category, error) {
	return s.repo.ListCategories(ctx, userID)
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, userID, id string) (models.Category, error) {
	c, err := s.repo.GetCategory(ctx, userID, id)
	return c, notFound(err)
}

// Create validates in and stores a new category.
func (s *CategoryService) Create(ctx context.Context, userID string, in CategoryInput) (models.Category, error) {
	c := models.Category{ID: uuid.NewString()}
	if err := s.apply(ctx, &c, in); err != nil {
		return models.Category{}, err
	}
	if err := s.repo.InsertCategory(ctx, userID, c); err != nil {
		s.dropImage(ctx, c.ImagePath)
		return models.Category{}, err
	}
	return c, nil
}

// Update validates in and replaces the category's fields. Without a new
// image the current one is kept.
func (s *CategoryService) Update(ctx context.Context, userID, id string, in CategoryInput) (models.Category, error) {
	c, err := s.repo.GetCategory(ctx, userID, id)
	if err != nil {
		return models.Category{}, notFound(err)
	}
	old := c.ImagePath
	if err := s.apply(ctx, &c, in); err != nil {
		return models.Category{}, err
	}
	if err := s.repo.UpdateCategory(ctx, userID, c); err != nil {
		if c.ImagePath != old {
			s.dropImage(ctx, c.ImagePath)
		}
		return models.Category{}, notFound(err)
	}
	if c.ImagePath != old {
		s.dropImage(ctx, old)
	}
	return c, nil
}

// Delete removes the category and its image.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	c, err := s.repo.DeleteCategory(ctx, userID, id)
	if err != nil {
		return notFound(err)
	}
	s.dropImage(ctx, c.ImagePath)
	return nil
}

// Image returns a hosted image by file name.
func (s *CategoryService) Image(ctx context.Context, name string) (repository.Image, error) {
	img, err := s.images.GetImage(ctx, name)
	return img, notFound(err)
}

func (s *CategoryService) apply(ctx context.Context, c *models.Category, in CategoryInput) error {
	fields := fieldErrors{}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		fields.add("name", "is required")
	}
	count, err := strconv.Atoi(strings.TrimSpace(in.ItemCount))
	switch {
	case strings.TrimSpace(in.ItemCount) == "":
		fields.add("itemCount", "is required")
	case err != nil:
		fields.add("itemCount", "must be a whole number")
	case count < 0:
		fields.add("itemCount", "must not be negative")
	}

	var ct string
	if in.HasImage {
		if int64(len(in.ImageData)) > s.maxImage {
			return fmt.Errorf("%w: max %d bytes", ErrImageTooLarge, s.maxImage)
		}
		ct = http.DetectContentType(in.ImageData)
		if _, ok := imageExt[ct]; !ok {
			fields.add("image", "must be a JPG, PNG or GIF image")
		}
	}
	if err := fields.err(); err != nil {
		return err
	}

	c.Name = name
	c.ItemCount = count
	if in.HasImage {
		file := c.ID + "-" + uuid.NewString()[:8] + imageExt[ct]
		if err := s.images.PutImage(ctx, file, repository.Image{ContentType: ct, Data: in.ImageData}); err != nil {
			return fmt.Errorf("store image: %w", err)
		}
		c.ImagePath = UploadsPrefix + file
	}
	return nil
}

// dropImage deletes the hosted image at path, if any.
func (s *CategoryService) dropImage(ctx context.Context, path string) {
	if path == "" {
		return
	}
	_ = s.images.DeleteImage(ctx, strings.TrimPrefix(path, UploadsPrefix))
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
