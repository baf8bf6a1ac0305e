// ABOUTME: Interactive prompts for headless commands
// ABOUTME: Numbered single-choice picker and hidden token entry
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/harperreed/textback/models"
)

// promptChoice prints options as a numbered list and reads a selection.
// Both the list number and the option id are accepted. Invalid input reprompts.
func promptChoice(in *bufio.Reader, out io.Writer, label string, options []models.CalendarOption) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("nothing to choose from")
	}

	_, _ = fmt.Fprintf(out, "\n%s:\n", label)
	for i, opt := range options {
		if opt.Description != "" {
			_, _ = fmt.Fprintf(out, "  %d) %s (%s)\n", i+1, opt.Name, opt.Description)
		} else {
			_, _ = fmt.Fprintf(out, "  %d) %s\n", i+1, opt.Name)
		}
	}

	for {
		_, _ = fmt.Fprintf(out, "Choose [1-%d]: ", len(options))
		line, err := in.ReadString('\n')
		answer := strings.TrimSpace(line)

		if answer != "" {
			if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(options) {
				return options[n-1].ID, nil
			}
			for _, opt := range options {
				if opt.ID == answer {
					return opt.ID, nil
				}
			}
			_, _ = fmt.Fprintf(out, "%q is not one of the choices\n", answer)
		}

		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("no selection made")
			}
			return "", fmt.Errorf("failed to read selection: %w", err)
		}
	}
}

// readSecret reads a secret without echo when stdin is a terminal, and falls
// back to a plain line read otherwise (pipes, tests).
func readSecret(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	_, _ = fmt.Fprint(out, prompt)

	fd := int(os.Stdin.Fd())
	if in.Buffered() == 0 && term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(out) // New line after hidden input
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// awaitInput runs a blocking read and gives up when ctx is cancelled.
// The abandoned read stays parked on stdin until the process exits.
func awaitInput(ctx context.Context, read func() (string, error)) (string, error) {
	type result struct {
		value string
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		value, err := read()
		ch <- result{value, err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrCancelled
	case r := <-ch:
		return r.value, r.err
	}
}

// saveTerminal captures the stdin terminal state so echo can be restored if a
// hidden read is abandoned.
func saveTerminal() func() {
	fd := int(os.Stdin.Fd())
	state, err := term.GetState(fd)
	if err != nil {
		return func() {}
	}
	return func() { _ = term.Restore(fd, state) }
}
