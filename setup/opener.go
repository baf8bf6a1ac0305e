// ABOUTME: Opens OAuth consent pages in the user's browser
// ABOUTME: Launches the platform opener without waiting for the window to close
package setup

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Opener shows an authorization URL to the user.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error { return f(url) }

// BrowserOpener opens URLs in the default browser.
type BrowserOpener struct{}

// Open starts the browser and returns immediately.
func (BrowserOpener) Open(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", "", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	command := exec.Command(cmd, args...)
	if err := command.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	// Reap the opener process in the background.
	go func() { _ = command.Wait() }()
	return nil
}

// NoopOpener leaves opening the URL to the user (headless sessions).
type NoopOpener struct{}

func (NoopOpener) Open(string) error { return nil }
