// Package shell is the interactive front end of the client. It hosts the
// protected dashboard behind the route guard and drives the session and the
// category collection from typed commands.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/GophShelf/internal/client/api"
	"github.com/atinyakov/GophShelf/internal/client/collection"
	"github.com/atinyakov/GophShelf/internal/client/guard"
	"github.com/atinyakov/GophShelf/internal/client/session"
	"github.com/atinyakov/GophShelf/internal/models"
)

// Assets resolves hosted image paths to URLs.
type Assets interface {
	ImageURL(path string) string
}

// Shell runs the read-eval loop.
type Shell struct {
	p      *prompter
	out    io.Writer
	sess   *session.Controller
	guard  *guard.Guard
	col    *collection.Synchronizer
	assets Assets
	log    *zap.Logger

	route guard.Route
	// verified is the token whose profile was checked with the server.
	verified string
	// owner is the token the collection was loaded under.
	owner string
	// openFile opens image files; replaced in tests.
	openFile func(name string) (io.ReadCloser, error)
}

// New returns a shell reading commands from in and writing to out.
func New(in io.Reader, out io.Writer, sess *session.Controller, col *collection.Synchronizer, assets Assets, log *zap.Logger) *Shell {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shell{
		p:      &prompter{scanner: bufio.NewScanner(in), out: out},
		out:    out,
		sess:   sess,
		guard:  guard.New(sess),
		col:    col,
		assets: assets,
		log:    log,
		route:  guard.Root,
		openFile: func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		},
	}
}

// Route returns the screen the shell is on.
func (s *Shell) Route() guard.Route {
	return s.route
}

// Run processes commands until "exit", end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	s.navigate(ctx, guard.Root)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		// the session may have changed behind our back (another process)
		s.navigate(ctx, s.route)

		line, ok := s.p.ask(fmt.Sprintf("gophshelf:%s> ", s.route))
		if !ok {
			fmt.Fprintln(s.out)
			return nil
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			fmt.Fprintln(s.out, "Bye")
			return nil
		}
		s.dispatch(ctx, args)
	}
}

func (s *Shell) dispatch(ctx context.Context, args []string) {
	switch args[0] {
	case "help":
		s.help()
	case "go":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: go <route>")
			return
		}
		s.navigate(ctx, guard.Route(args[1]))
	case "whoami":
		s.whoami()
	case "login":
		s.login(ctx)
	case "signup":
		s.signup(ctx)
	case "logout":
		s.sess.Logout(ctx)
		fmt.Fprintln(s.out, "Logged out")
		s.navigate(ctx, s.route)
	case "list", "show", "new", "edit", "delete":
		if s.route != guard.Dashboard {
			fmt.Fprintln(s.out, "Please log in first.")
			return
		}
		s.dashboard(ctx, args)
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
}

func (s *Shell) dashboard(ctx context.Context, args []string) {
	if args[0] != "list" && args[0] != "new" && len(args) < 2 {
		fmt.Fprintf(s.out, "Usage: %s <id>\n", args[0])
		return
	}
	switch args[0] {
	case "list":
		if s.report(ctx, s.col.Refresh(ctx)) {
			s.printList()
		}
	case "show":
		s.show(ctx, args[1])
	case "new":
		s.col.OpenCreate()
		s.edit(ctx, "Category created")
	case "edit":
		if !s.col.OpenEdit(args[1]) {
			fmt.Fprintln(s.out, "Category not found")
			return
		}
		s.edit(ctx, "Category updated")
	case "delete":
		s.remove(ctx, args[1])
	}
}

func (s *Shell) help() {
	switch s.route {
	case guard.Dashboard:
		fmt.Fprintln(s.out, "Available commands: help, list, show <id>, new, edit <id>, delete <id>, whoami, logout, exit")
	default:
		fmt.Fprintln(s.out, "Available commands: help, login, signup, go <route>, exit")
	}
}

// navigate moves to where the guard sends a request for r. Entering the
// dashboard loads the collection and checks the stored token once. A token
// change empties the collection and, on the dashboard, loads it again.
func (s *Shell) navigate(ctx context.Context, r guard.Route) {
	target := s.guard.Resolve(r)
	switched := s.sess.Token() != s.owner
	if switched {
		// never show one session's categories to another
		s.owner = s.sess.Token()
		s.col.Reset()
	}
	if target == s.route && !switched {
		return
	}
	from := s.route
	s.route = target
	s.log.Debug("navigate", zap.String("from", string(from)), zap.String("requested", string(r)), zap.String("to", string(target)))

	if from == guard.Dashboard {
		s.col.Close()
	}
	if target != guard.Dashboard {
		return
	}

	if token := s.sess.Token(); token != s.verified {
		s.verified = token
		if err := s.sess.RefreshProfile(ctx); err != nil {
			s.report(ctx, err)
			if s.route != guard.Dashboard {
				return
			}
		}
	}
	if p := s.sess.Profile(); p != nil {
		fmt.Fprintf(s.out, "Welcome, %s!\n", p.Name)
	}
	if s.report(ctx, s.col.Refresh(ctx)) {
		s.printList()
	}
}

func (s *Shell) whoami() {
	p := s.sess.Profile()
	switch {
	case s.sess.State() != session.Authenticated:
		fmt.Fprintln(s.out, "Not logged in")
	case p == nil:
		fmt.Fprintln(s.out, "Logged in")
	default:
		fmt.Fprintf(s.out, "%s <%s> (id %s)\n", p.Name, p.Email, p.ID)
	}
}

func (s *Shell) login(ctx context.Context) {
	if s.route == guard.Dashboard {
		fmt.Fprintln(s.out, "Already logged in")
		return
	}
	s.navigate(ctx, guard.Login)
	c, ok := s.p.login()
	if !ok {
		return
	}
	if s.report(ctx, s.sess.Login(ctx, c.email, c.password)) {
		s.verified = s.sess.Token()
		s.navigate(ctx, guard.Dashboard)
	}
}

func (s *Shell) signup(ctx context.Context) {
	if s.route == guard.Dashboard {
		fmt.Fprintln(s.out, "Already logged in")
		return
	}
	s.navigate(ctx, guard.Signup)
	c, ok := s.p.signup()
	if !ok {
		return
	}
	if s.report(ctx, s.sess.Signup(ctx, c.name, c.email, c.password)) {
		s.verified = s.sess.Token()
		s.navigate(ctx, guard.Dashboard)
	}
}

func (s *Shell) show(ctx context.Context, id string) {
	if !s.report(ctx, s.col.Reload(ctx, id)) {
		return
	}
	c, ok := s.col.Find(id)
	if !ok {
		fmt.Fprintln(s.out, "Category not found")
		return
	}
	fmt.Fprintf(s.out, "ID:    %s\nName:  %s\nItems: %d\n", c.ID, c.Name, c.ItemCount)
	if c.HasImage() {
		fmt.Fprintf(s.out, "Image: %s\n", s.assets.ImageURL(c.ImagePath))
	}
}

// edit runs the open editor until it is submitted or abandoned.
func (s *Shell) edit(ctx context.Context, done string) {
	defer s.col.Close()

	for {
		ed := s.col.Editor()
		if !ed.Open() {
			return
		}
		f, ok := s.p.fields(ed.Form.Fields)
		if !ok {
			return
		}
		if !s.pickImage(ed) {
			return
		}

		err := s.col.Submit(ctx, f)
		if err == nil {
			fmt.Fprintln(s.out, done)
			return
		}
		if !s.report(ctx, err) && s.route == guard.Dashboard && s.col.Editor().Open() {
			if !s.p.confirm("Try again?") {
				return
			}
		}
	}
}

// pickImage asks for an optional image file. It returns false on end of input.
func (s *Shell) pickImage(ed collection.Editor) bool {
	label := "Image file (empty for none)"
	if ed.Form.ImagePath != "" || ed.Image != nil {
		label = "Image file (empty to keep current)"
	}
	path, ok := s.p.ask(label + ": ")
	if !ok {
		return false
	}
	if path == "" {
		return true
	}

	fh, err := s.openFile(path)
	if err != nil {
		fmt.Fprintf(s.out, "Cannot read %s: %v (continuing without image)\n", path, err)
		return true
	}
	defer fh.Close()
	if err := s.col.SelectImage(path, fh); err != nil {
		fmt.Fprintf(s.out, "Cannot read %s: %v (continuing without image)\n", path, err)
		return true
	}
	if img := s.col.Editor().Image; img != nil {
		for _, a := range collection.ImageAdvice(img.Image) {
			fmt.Fprintf(s.out, "Note: %s\n", a)
		}
		if img.Preview == "" {
			fmt.Fprintln(s.out, "No preview available")
		}
	}
	return true
}

func (s *Shell) remove(ctx context.Context, id string) {
	label := fmt.Sprintf("Delete category %s?", id)
	if c, ok := s.col.Find(id); ok {
		label = fmt.Sprintf("Delete %q?", c.Name)
	}
	err := s.col.Remove(ctx, id, s.p.confirm(label))
	if errors.Is(err, collection.ErrNotConfirmed) {
		fmt.Fprintln(s.out, "Cancelled")
		return
	}
	if s.report(ctx, err) {
		fmt.Fprintln(s.out, "Category deleted")
	}
}

func (s *Shell) printList() {
	items := s.col.Items()
	if len(items) == 0 {
		fmt.Fprintln(s.out, "No categories yet. Type 'new' to create one.")
		return
	}
	for _, c := range items {
		fmt.Fprintln(s.out, formatCategory(c))
	}
}

func formatCategory(c models.Category) string {
	line := fmt.Sprintf("%-24s %-20s %5d", c.ID, c.Name, c.ItemCount)
	if c.HasImage() {
		line += "  [image]"
	}
	return line
}

// report prints err, if any, and reports whether there was none. A rejected
// token ends the session and leaves the dashboard.
func (s *Shell) report(ctx context.Context, err error) bool {
	if err == nil {
		return true
	}
	if s.sess.Reconcile(ctx, err) {
		fmt.Fprintln(s.out, "Your session has expired. Please log in again.")
		s.navigate(ctx, s.route)
		return false
	}

	var formErr *collection.FormError
	var apiErr *api.Error
	switch {
	case errors.As(err, &formErr):
		fmt.Fprintf(s.out, "Invalid %s: %s\n", formErr.Field, formErr.Message)
	case errors.As(err, &apiErr) && len(apiErr.Fields) > 0:
		fmt.Fprintf(s.out, "Error: %v\n", err)
		fields := make([]string, 0, len(apiErr.Fields))
		for f := range apiErr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(s.out, "  %s: %s\n", f, apiErr.Fields[f])
		}
	default:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}
