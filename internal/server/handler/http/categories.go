package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/GophShelf/internal/middleware"
	"github.com/atinyakov/GophShelf/internal/models"
	"github.com/atinyakov/GophShelf/internal/repository"
	"github.com/atinyakov/GophShelf/internal/service"
)

// multipart overhead allowed on top of the image size limit
const formSlack = 1 << 20

// CategoryService defines the category operations required by the
// CategoryHandler.
type CategoryService interface {
	List(ctx context.Context, userID string) ([]models.Category, error)
	Get(ctx context.Context, userID, id string) (models.Category, error)
	Create(ctx context.Context, userID string, in service.CategoryInput) (models.Category, error)
	Update(ctx context.Context, userID, id string, in service.CategoryInput) (models.Category, error)
	Delete(ctx context.Context, userID, id string) error
	Image(ctx context.Context, name string) (repository.Image, error)
	MaxImageBytes() int64
}

// CategoryHandler handles the category endpoints and hosted images.
type CategoryHandler struct {
	CategoryService CategoryService
}

// List handles GET /categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.CategoryService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get handles GET /categories/{id}.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.CategoryService.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create handles POST /categories with a multipart body.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readForm(w, r)
	if !ok {
		return
	}
	c, err := h.CategoryService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Update handles PUT /categories/{id} with a multipart body.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readForm(w, r)
	if !ok {
		return
	}
	c, err := h.CategoryService.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /categories/{id}.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.CategoryService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

// Image handles GET /uploads/{file}.
func (h *CategoryHandler) Image(w http.ResponseWriter, r *http.Request) {
	img, err := h.CategoryService.Image(r.Context(), chi.URLParam(r, "file"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(img.Data)
}

// readForm parses the multipart body of a create or update request. It
// writes the error answer itself and returns false on failure.
func (h *CategoryHandler) readForm(w http.ResponseWriter, r *http.Request) (service.CategoryInput, bool) {
	limit := h.CategoryService.MaxImageBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+formSlack)

	if err := r.ParseMultipartForm(limit + formSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, service.ErrImageTooLarge)
			return service.CategoryInput{}, false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return service.CategoryInput{}, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := service.CategoryInput{
		Name:      r.FormValue("name"),
		ItemCount: r.FormValue("itemCount"),
	}

	f, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, true
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid image part")
		return service.CategoryInput{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image part")
		return service.CategoryInput{}, false
	}
	in.ImageData = data
	in.HasImage = true
	return in, true
}
