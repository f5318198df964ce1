package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/mdmtools/prestage-go/internal/config"
)

// lookupPassword returns the API password from the environment, or
// prompts for it without echo when attached to a terminal. Scripted
// runs without a terminal must use the environment variable; silently
// blocking on a hidden prompt in a pipeline is worse than failing.
func lookupPassword(resolved *config.Resolved) (string, error) {
	if pw := os.Getenv(config.EnvPassword); pw != "" {
		return pw, nil
	}

	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return "", fmt.Errorf("no terminal for password prompt; set %s", config.EnvPassword)
	}

	fmt.Fprintf(os.Stderr, "Password for %s at %s: ", resolved.Username, resolved.URL)

	pw, err := term.ReadPassword(int(fd))

	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if len(pw) == 0 {
		return "", fmt.Errorf("empty password")
	}

	return string(pw), nil
}
