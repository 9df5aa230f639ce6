package platform

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/aretw0/mend/pkg/core"
)

// ErrNotTerminal is returned by TerminalPrompter when stdin is not a terminal.
var ErrNotTerminal = errors.New("not a terminal")

// Prompter asks the operator for a secret.
type Prompter interface {
	Prompt(label string) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(label string) (string, error)

// Prompt implements Prompter.
func (f PrompterFunc) Prompt(label string) (string, error) { return f(label) }

// TerminalPrompter reads a secret without echo from a terminal.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// Prompt implements Prompter.
func (p TerminalPrompter) Prompt(label string) (string, error) {
	in, out := p.In, p.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNotTerminal
	}
	fmt.Fprintf(out, "%s: ", label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// resolveToken fills cfg.Token through the prompter when no earlier
// source provided one.
func resolveToken(cfg Config, p Prompter) (Config, error) {
	if cfg.Token != "" {
		return cfg, nil
	}
	if p == nil {
		return cfg, fmt.Errorf("%w: set SANITY_API_TOKEN or pass --token", core.ErrMissingCredential)
	}
	token, err := p.Prompt("Sanity API token")
	if err != nil || token == "" {
		if err == nil {
			err = errors.New("empty token")
		}
		return cfg, fmt.Errorf("%w: set SANITY_API_TOKEN or pass --token (%v)", core.ErrMissingCredential, err)
	}
	cfg.Token = token
	return cfg, nil
}
