package collection

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophShelf/internal/client/api"
	"github.com/atinyakov/GophShelf/internal/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSelectImage_PreviewAndSubmit(t *testing.T) {
	ctx := context.Background()
	var sent *api.Image
	client := &clientFunc{createFunc: func(_ context.Context, in api.CategoryInput) (models.Category, error) {
		sent = in.Image
		return models.Category{ID: "c1", Name: in.Name, ImagePath: "/uploads/x.png"}, nil
	}}
	s := New(client, nil)
	s.OpenCreate()

	require.NoError(t, s.SelectImage("/home/me/pics/cover.png", bytes.NewReader(pngHeader)))

	ed := s.Editor()
	require.NotNil(t, ed.Image)
	assert.Equal(t, "cover.png", ed.Image.Filename)
	assert.True(t, strings.HasPrefix(ed.Form.Preview, "data:image/png;base64,"))

	require.NoError(t, s.Submit(ctx, Fields{Name: "Cover", ItemCount: "1"}))
	require.NotNil(t, sent)
	assert.Equal(t, pngHeader, sent.Data, "the original bytes are sent, not the preview")
	assert.Nil(t, s.Editor().Image, "pending image is discarded after submit")
}

func TestSelectImage_NonImageHasNoPreview(t *testing.T) {
	s := New(&clientFunc{}, nil)
	s.OpenCreate()

	require.NoError(t, s.SelectImage("notes.txt", strings.NewReader("plain text")))

	ed := s.Editor()
	require.NotNil(t, ed.Image)
	assert.Empty(t, ed.Form.Preview)
}

func TestSelectImage_UnreadableDegrades(t *testing.T) {
	s := New(&clientFunc{}, nil)
	s.OpenCreate()
	require.NoError(t, s.SelectImage("a.png", bytes.NewReader(pngHeader)))

	err := s.SelectImage("b.png", iotest.ErrReader(errors.New("permission denied")))

	require.Error(t, err)
	ed := s.Editor()
	assert.True(t, ed.Open())
	assert.Nil(t, ed.Image)
	assert.Empty(t, ed.Form.Preview)
}

func TestSelectImage_EditorClosed(t *testing.T) {
	s := New(&clientFunc{}, nil)
	assert.ErrorIs(t, s.SelectImage("a.png", bytes.NewReader(pngHeader)), ErrEditorClosed)
}

func TestClose_DiscardsPendingImage(t *testing.T) {
	s := New(&clientFunc{}, nil)
	s.OpenCreate()
	require.NoError(t, s.SelectImage("a.png", bytes.NewReader(pngHeader)))

	s.Close()
	s.OpenCreate()

	assert.Nil(t, s.Editor().Image)
	assert.Empty(t, s.Editor().Form.Preview)
}

func TestImageAdvice(t *testing.T) {
	tests := []struct {
		name string
		img  api.Image
		want []string
	}{
		{"small png", api.Image{Data: pngHeader}, nil},
		{"gif", api.Image{Data: []byte("GIF89a......")}, nil},
		{"text", api.Image{Data: []byte("hello")}, []string{"image should be JPG, PNG or GIF"}},
		{
			"huge png",
			api.Image{Data: append(append([]byte{}, pngHeader...), make([]byte, MaxImageBytes)...)},
			[]string{"image is larger than 5MB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageAdvice(tt.img))
		})
	}
}

func TestImageAdvice_NotEnforced(t *testing.T) {
	var called bool
	client := &clientFunc{createFunc: func(_ context.Context, in api.CategoryInput) (models.Category, error) {
		called = true
		return models.Category{ID: "c1", Name: in.Name}, nil
	}}
	s := New(client, nil)
	s.OpenCreate()
	require.NoError(t, s.SelectImage("doc.txt", strings.NewReader("not an image")))

	require.NoError(t, s.Submit(context.Background(), Fields{Name: "Doc", ItemCount: "0"}))
	assert.True(t, called)
}
