package collection

import (
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/atinyakov/GophShelf/internal/client/api"
)

// MaxImageBytes is the size the remote service is known to accept.
const MaxImageBytes = 5 << 20

var advisedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// PendingImage is an image selected in the open editor. Data is sent
// unchanged on submit; Preview is only for display.
type PendingImage struct {
	api.Image
	Preview string
}

func newPendingImage(name string, r io.Reader) (*PendingImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", name, err)
	}
	img := api.Image{Filename: filepath.Base(name), Data: data}
	return &PendingImage{Image: img, Preview: preview(img)}, nil
}

// preview renders img as a data URL, or "" when it does not look like an image.
func preview(img api.Image) string {
	ct := img.ContentType()
	if !strings.HasPrefix(ct, "image/") {
		return ""
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ImageAdvice lists the ways img falls outside what the remote service is
// known to accept. It is a hint only; submit does not consult it.
func ImageAdvice(img api.Image) []string {
	var advice []string
	if len(img.Data) > MaxImageBytes {
		advice = append(advice, "image is larger than 5MB")
	}
	if !advisedTypes[img.ContentType()] {
		advice = append(advice, "image should be JPG, PNG or GIF")
	}
	return advice
}
