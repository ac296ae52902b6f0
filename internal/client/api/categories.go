package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/atinyakov/GophShelf/internal/models"
)

const pathCategories = "/categories"

// TokenSource supplies the current bearer token, empty when there is none.
type TokenSource interface {
	Token() string
}

// Image is a binary image payload sent as-is.
type Image struct {
	Filename string
	Data     []byte
}

// ContentType sniffs the media type of the image data.
func (i Image) ContentType() string {
	return http.DetectContentType(i.Data)
}

// CategoryInput holds the fields of a create or update request.
type CategoryInput struct {
	Name      string
	ItemCount int
	Image     *Image
}

// CategoryClient issues the category CRUD requests. Every call carries the
// token from its TokenSource and fails with ErrNoToken, without sending
// anything, when there is none. Calls are never retried.
type CategoryClient struct {
	t        *transport
	tokens   TokenSource
	assetURL string
}

// NewCategoryClient returns a client for the category endpoints under
// baseURL. Image paths are resolved against assetURL; when empty it is
// derived from baseURL by dropping a trailing "/api".
func NewCategoryClient(baseURL, assetURL string, tokens TokenSource, opts ...Option) *CategoryClient {
	t := newTransport(baseURL, opts)
	if assetURL == "" {
		assetURL = strings.TrimSuffix(t.baseURL, "/api")
	}
	return &CategoryClient{
		t:        t,
		tokens:   tokens,
		assetURL: strings.TrimRight(assetURL, "/"),
	}
}

// List returns all categories of the current user.
func (c *CategoryClient) List(ctx context.Context) ([]models.Category, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}
	var out []models.Category
	err = c.t.do(ctx, request{
		method:   http.MethodGet,
		path:     pathCategories,
		token:    token,
		classify: bearerStatus,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Category{}
	}
	return out, nil
}

// Get returns one category.
func (c *CategoryClient) Get(ctx context.Context, id string) (models.Category, error) {
	token, err := c.token()
	if err != nil {
		return models.Category{}, err
	}
	var out models.Category
	err = c.t.do(ctx, request{
		method:   http.MethodGet,
		path:     categoryPath(id),
		token:    token,
		classify: bearerStatus,
	}, &out)
	return out, err
}

// Create sends a multipart create request and returns the stored category.
func (c *CategoryClient) Create(ctx context.Context, in CategoryInput) (models.Category, error) {
	return c.send(ctx, http.MethodPost, pathCategories, in)
}

// Update replaces the fields of category id and returns the stored category.
func (c *CategoryClient) Update(ctx context.Context, id string, in CategoryInput) (models.Category, error) {
	return c.send(ctx, http.MethodPut, categoryPath(id), in)
}

// Delete removes category id.
func (c *CategoryClient) Delete(ctx context.Context, id string) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	return c.t.do(ctx, request{
		method:   http.MethodDelete,
		path:     categoryPath(id),
		token:    token,
		classify: bearerStatus,
	}, nil)
}

// ImageURL resolves a server-relative image path. Absolute URLs are returned
// unchanged and an empty path gives an empty URL.
func (c *CategoryClient) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.assetURL + path
}

func (c *CategoryClient) send(ctx context.Context, method, path string, in CategoryInput) (models.Category, error) {
	token, err := c.token()
	if err != nil {
		return models.Category{}, err
	}

	body, contentType, err := categoryForm(in)
	if err != nil {
		return models.Category{}, &Error{Kind: KindUnknown, Message: "build form", Cause: err}
	}

	var out models.Category
	err = c.t.do(ctx, request{
		method:      method,
		path:        path,
		token:       token,
		body:        body,
		contentType: contentType,
		classify:    bearerStatus,
	}, &out)
	if err != nil {
		return models.Category{}, err
	}
	if out.ID == "" {
		return models.Category{}, &Error{Kind: KindMalformedResponse, Status: http.StatusOK, Message: "response has no id"}
	}
	return out, nil
}

func (c *CategoryClient) token() (string, error) {
	if c.tokens == nil {
		return "", &Error{Kind: KindNoToken}
	}
	token := c.tokens.Token()
	if token == "" {
		return "", &Error{Kind: KindNoToken}
	}
	return token, nil
}

func categoryPath(id string) string {
	return pathCategories + "/" + url.PathEscape(id)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// categoryForm builds the multipart body: name, itemCount and, when present,
// the image part with its sniffed content type.
func categoryForm(in CategoryInput) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("name", in.Name); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("itemCount", strconv.Itoa(in.ItemCount)); err != nil {
		return nil, "", err
	}

	if in.Image != nil {
		name := filepath.Base(in.Image.Filename)
		if name == "." || name == string(filepath.Separator) {
			name = "image"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(name)))
		h.Set("Content-Type", in.Image.ContentType())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(in.Image.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
