// Package collection keeps the signed-in user's categories in memory,
// consistent with what the server has confirmed, and runs the editor that
// creates and updates them.
//
// Writes are confirmed, never speculative: the in-memory collection changes
// only after the server acknowledged a mutation. At most one mutation per
// category id is outstanding at a time; a second one fails with ErrBusy.
package collection

import (
	"context"
	"errors"
	"io"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/GophShelf/internal/client/api"
	"github.com/atinyakov/GophShelf/internal/models"
)

var (
	// ErrBusy means a mutation of the same category is still in flight.
	ErrBusy = errors.New("collection: category is busy")
	// ErrEditorClosed means Submit was called without an open editor.
	ErrEditorClosed = errors.New("collection: editor is closed")
	// ErrStaleEditor means the edited category is no longer in the collection.
	ErrStaleEditor = errors.New("collection: edited category no longer exists")
	// ErrNotConfirmed means Remove was called without the user's confirmation.
	ErrNotConfirmed = errors.New("collection: removal not confirmed")
	// ErrInvalidForm is wrapped by every *FormError.
	ErrInvalidForm = errors.New("collection: invalid form")
)

// Client is the remote category API.
type Client interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id string) (models.Category, error)
	Create(ctx context.Context, in api.CategoryInput) (models.Category, error)
	Update(ctx context.Context, id string, in api.CategoryInput) (models.Category, error)
	Delete(ctx context.Context, id string) error
}

// Synchronizer holds the collection and the editor. It is safe for
// concurrent use; network calls are made without holding its lock.
type Synchronizer struct {
	client Client
	log    *zap.Logger

	mu    sync.Mutex
	items []models.Category
	err   error

	refreshSeq uint64
	loading    bool
	inflight   map[string]struct{}
	// epoch changes on Reset; calls settling under an older epoch are dropped
	epoch uint64

	mode       Mode
	form       Form
	image      *PendingImage
	editorGen  uint64
	submitting bool
}

// New returns an empty synchronizer with a closed editor.
func New(client Client, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{
		client:   client,
		log:      log,
		inflight: make(map[string]struct{}),
		mode:     Closed{},
	}
}

// Items returns a copy of the collection, most recently created first.
func (s *Synchronizer) Items() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Category{}, s.items...)
}

// Find returns the category with id.
func (s *Synchronizer) Find(id string) (models.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		return s.items[i], true
	}
	return models.Category{}, false
}

// Loading reports whether the latest refresh is still in flight.
func (s *Synchronizer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last failure, nil after a success.
func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Refresh replaces the collection with the server's list. When refreshes
// overlap only the one issued last is applied. On failure the collection is
// kept as it was.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.refreshSeq++
	seq := s.refreshSeq
	s.loading = true
	s.mu.Unlock()

	items, err := s.client.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.refreshSeq {
		s.log.Debug("dropping superseded refresh", zap.Uint64("seq", seq))
		return err
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.log.Warn("refresh failed", zap.Error(err))
		return err
	}
	s.items = items
	s.err = nil
	s.closeIfVanished()
	return nil
}

// Reload fetches one category again. It replaces the entry in place, or
// removes it when the server no longer has it.
func (s *Synchronizer) Reload(ctx context.Context, id string) error {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	c, err := s.client.Get(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return err
	}
	switch {
	case errors.Is(err, api.ErrNotFound):
		if i := s.index(id); i >= 0 {
			s.items = slices.Delete(s.items, i, i+1)
		}
		s.closeIfVanished()
		s.err = err
		return err
	case err != nil:
		s.err = err
		s.log.Warn("reload failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if i := s.index(id); i >= 0 {
		s.items[i] = c
	}
	s.err = nil
	return nil
}

// Remove deletes a category. confirmed carries the user's confirmation;
// without it nothing is sent. The entry is removed only after the server
// acknowledged the delete.
func (s *Synchronizer) Remove(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	epoch, err := s.acquire(id)
	if err != nil {
		return err
	}

	err = s.client.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return err
	}
	delete(s.inflight, id)
	if err != nil {
		s.err = err
		s.log.Warn("delete failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if i := s.index(id); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
	}
	s.err = nil
	s.closeIfVanished()
	return nil
}

// OpenCreate opens an empty editor for a new category.
func (s *Synchronizer) OpenCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openEditor(Creating{}, Form{})
}

// OpenEdit opens the editor seeded from the category with id. It does
// nothing and returns false when id is not in the collection.
func (s *Synchronizer) OpenEdit(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return false
	}
	c := s.items[i]
	s.openEditor(Editing{ID: id}, Form{
		Fields:    Fields{Name: c.Name, ItemCount: strconv.Itoa(c.ItemCount)},
		ImagePath: c.ImagePath,
	})
	return true
}

// Editor returns a snapshot of the editor.
func (s *Synchronizer) Editor() Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Editor{Mode: s.mode, Form: s.form}
	if s.image != nil {
		img := *s.image
		e.Image = &img
	}
	return e
}

// SelectImage reads an image for the open editor and renders its preview.
// A read failure leaves the editor without a pending image and is returned;
// the rest of the form is unaffected.
func (s *Synchronizer) SelectImage(name string, r io.Reader) error {
	img, err := newPendingImage(name, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, closed := s.mode.(Closed); closed {
		return ErrEditorClosed
	}
	if err != nil {
		s.image = nil
		s.form.Preview = ""
		s.log.Info("image unreadable, no preview", zap.Error(err))
		return err
	}
	s.image = img
	s.form.Preview = img.Preview
	return nil
}

// Close closes the editor and discards the pending image. Closing a closed
// editor is a no-op.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeEditor()
}

// Reset empties the collection for a new session: items, error, editor and
// in-flight markers are dropped, and calls still in flight are ignored when
// they settle.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.refreshSeq++
	s.loading = false
	s.items = nil
	s.err = nil
	s.inflight = make(map[string]struct{})
	s.submitting = false
	s.closeEditor()
}

// Submit validates f and sends it together with the pending image. In
// Creating mode the new category is prepended; in Editing mode the entry is
// replaced in place. On success the editor closes; on any failure it stays
// open and the collection is untouched. Invalid fields fail with a
// *FormError before anything is sent.
func (s *Synchronizer) Submit(ctx context.Context, f Fields) error {
	s.mu.Lock()
	mode := s.mode
	if _, closed := mode.(Closed); closed {
		s.mu.Unlock()
		return ErrEditorClosed
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}
	s.form.Fields = f
	valid, err := f.validate()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	id := ""
	if m, ok := mode.(Editing); ok {
		id = m.ID
		if s.index(id) < 0 {
			s.closeEditor()
			s.mu.Unlock()
			return ErrStaleEditor
		}
		if _, busy := s.inflight[id]; busy {
			s.mu.Unlock()
			return ErrBusy
		}
		s.inflight[id] = struct{}{}
	}
	in := api.CategoryInput{Name: valid.name, ItemCount: valid.itemCount}
	if s.image != nil {
		img := s.image.Image
		in.Image = &img
	}
	gen, epoch := s.editorGen, s.epoch
	s.submitting = true
	s.mu.Unlock()

	var c models.Category
	if id == "" {
		c, err = s.client.Create(ctx, in)
	} else {
		c, err = s.client.Update(ctx, id, in)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		s.log.Debug("dropping submit settled after reset", zap.String("id", id))
		return err
	}
	s.submitting = false
	if id != "" {
		delete(s.inflight, id)
	}
	if err != nil {
		s.err = err
		s.log.Warn("submit failed", zap.String("id", id), zap.Error(err))
		return err
	}

	if id == "" {
		s.prepend(c)
	} else if i := s.index(id); i >= 0 {
		s.items[i] = c
	}
	s.err = nil
	if gen == s.editorGen {
		s.closeEditor()
	}
	return nil
}

func (s *Synchronizer) acquire(id string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return 0, ErrBusy
	}
	s.inflight[id] = struct{}{}
	return s.epoch, nil
}

// prepend inserts c first, or replaces the entry with the same id if a
// refresh already brought it in.
func (s *Synchronizer) prepend(c models.Category) {
	if i := s.index(c.ID); i >= 0 {
		s.items[i] = c
		return
	}
	s.items = slices.Insert(s.items, 0, c)
}

func (s *Synchronizer) index(id string) int {
	return slices.IndexFunc(s.items, func(c models.Category) bool { return c.ID == id })
}

func (s *Synchronizer) openEditor(m Mode, f Form) {
	s.mode = m
	s.form = f
	s.image = nil
	s.editorGen++
}

func (s *Synchronizer) closeEditor() {
	if _, closed := s.mode.(Closed); closed {
		return
	}
	s.openEditor(Closed{}, Form{})
}

// closeIfVanished closes an editor whose category left the collection.
func (s *Synchronizer) closeIfVanished() {
	if m, ok := s.mode.(Editing); ok && s.index(m.ID) < 0 {
		s.log.Info("closing editor of removed category", zap.String("id", m.ID))
		s.closeEditor()
	}
}
