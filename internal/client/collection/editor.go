package collection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Mode is the editor mode: Closed, Creating or Editing.
type Mode interface {
	isMode()
}

// Closed means no editor is open.
type Closed struct{}

// Creating means the editor will create a new category on submit.
type Creating struct{}

// Editing means the editor will update the category with ID on submit.
type Editing struct {
	ID string
}

func (Closed) isMode()   {}
func (Creating) isMode() {}
func (Editing) isMode()  {}

// Fields are the raw form values as typed by the user.
type Fields struct {
	Name      string
	ItemCount string
}

// Form is the editor content: the fields plus what to show as image preview.
type Form struct {
	Fields
	// ImagePath is the hosted image of the category being edited, if any.
	ImagePath string
	// Preview is a data URL of the newly selected image, if one could be rendered.
	Preview string
}

// Editor is a snapshot of the editor state.
type Editor struct {
	Mode  Mode
	Form  Form
	Image *PendingImage
}

// Open reports whether an editor is open.
func (e Editor) Open() bool {
	_, closed := e.Mode.(Closed)
	return !closed
}

// FormError is a local validation failure of one field. Nothing was sent.
type FormError struct {
	Field   string
	Message string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidForm) match.
func (e *FormError) Unwrap() error {
	return ErrInvalidForm
}

type validFields struct {
	name      string
	itemCount int
}

func (f Fields) validate() (validFields, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return validFields{}, &FormError{Field: "name", Message: "is required"}
	}

	raw := strings.TrimSpace(f.ItemCount)
	if raw == "" {
		return validFields{}, &FormError{Field: "itemCount", Message: "is required"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return validFields{}, &FormError{Field: "itemCount", Message: "is too large"}
		}
		return validFields{}, &FormError{Field: "itemCount", Message: "must be a whole number"}
	}
	if n < 0 {
		return validFields{}, &FormError{Field: "itemCount", Message: "must not be negative"}
	}
	return validFields{name: name, itemCount: n}, nil
}
