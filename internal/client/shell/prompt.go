package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/GophShelf/internal/client/collection"
)

// prompter reads answers line by line. ok is false once input is exhausted.
type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (p *prompter) ask(label string) (string, bool) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// askDefault shows the current value and keeps it when the answer is empty.
func (p *prompter) askDefault(label, current string) (string, bool) {
	if current != "" {
		label = fmt.Sprintf("%s [%s]", label, current)
	}
	v, ok := p.ask(label + ": ")
	if !ok {
		return "", false
	}
	if v == "" {
		return current, true
	}
	return v, true
}

func (p *prompter) confirm(label string) bool {
	v, ok := p.ask(label + " [y/N]: ")
	if !ok {
		return false
	}
	v = strings.ToLower(v)
	return v == "y" || v == "yes"
}

type credentials struct {
	name, email, password string
}

func (p *prompter) login() (credentials, bool) {
	var c credentials
	var ok bool
	if c.email, ok = p.ask("Email: "); !ok {
		return c, false
	}
	c.password, ok = p.ask("Password: ")
	return c, ok
}

func (p *prompter) signup() (credentials, bool) {
	var c credentials
	var ok bool
	if c.name, ok = p.ask("Name: "); !ok {
		return c, false
	}
	if c.email, ok = p.ask("Email: "); !ok {
		return c, false
	}
	c.password, ok = p.ask("Password: ")
	return c, ok
}

// fields asks for every category field, seeded from current.
func (p *prompter) fields(current collection.Fields) (collection.Fields, bool) {
	var f collection.Fields
	var ok bool
	if f.Name, ok = p.askDefault("Name", current.Name); !ok {
		return f, false
	}
	f.ItemCount, ok = p.askDefault("Item count", current.ItemCount)
	return f, ok
}
