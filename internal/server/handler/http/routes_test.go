package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophShelf/internal/models"
	"github.com/atinyakov/GophShelf/internal/server/servertest"
)

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func signup(t *testing.T, srv *servertest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.APIURL()+"/auth/signup", "application/json",
		strings.NewReader(`{"name":"Ann","email":"ann@x.com","password":"secret1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Token
}

func form(t *testing.T, fields map[string]string, image []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "cover.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, method, url, token string, body io.Reader, contentType string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestRouter_CategoryLifecycle(t *testing.T) {
	srv := servertest.Start(t, servertest.Options{})
	token := signup(t, srv)
	base := srv.APIURL() + "/categories"

	resp, body := do(t, http.MethodGet, base, token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	b, ct := form(t, map[string]string{"name": "Summer", "itemCount": "26"}, png)
	resp, body = do(t, http.MethodPost, base, token, b, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created models.Category
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "Summer", created.Name)
	require.True(t, created.HasImage())

	resp, body = do(t, http.MethodGet, srv.URL+created.ImagePath, "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, png, body)

	b, ct = form(t, map[string]string{"name": "Summer", "itemCount": "27"}, nil)
	resp, body = do(t, http.MethodPut, base+"/"+created.ID, token, b, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"itemCount":27`)

	resp, _ = do(t, http.MethodGet, base+"/"+created.ID, token, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, base+"/"+created.ID, token, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, base+"/"+created.ID, token, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_Errors(t *testing.T) {
	srv := servertest.Start(t, servertest.Options{MaxImageBytes: 8})
	token := signup(t, srv)
	base := srv.APIURL() + "/categories"

	resp, body := do(t, http.MethodGet, base, "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "missing bearer token")

	resp, _ = do(t, http.MethodGet, base, "forged", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	b, ct := form(t, map[string]string{"name": "", "itemCount": "x"}, nil)
	resp, body = do(t, http.MethodPost, base, token, b, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"is required"`)
	assert.Contains(t, string(body), `"itemCount":"must be a whole number"`)

	b, ct = form(t, map[string]string{"name": "A", "itemCount": "1"}, png)
	resp, _ = do(t, http.MethodPost, base, token, b, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base, token, strings.NewReader(`{"name":"A"}`), "application/json")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, base+"/missing", token, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/uploads/nothing.png", "", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.APIURL()+"/auth/signup", "",
		strings.NewReader(`{"name":"Ann","email":"ann@x.com","password":"secret1"}`), "application/json")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "already exists")

	resp, _ = do(t, http.MethodPost, srv.APIURL()+"/auth/login", "",
		strings.NewReader(`{"email":"ann@x.com","password":"nope-nope"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.APIURL()+"/auth/me", token, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"Ann"`)
}
