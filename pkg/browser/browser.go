// Package browser opens verification pages in the user's browser.
package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// command returns the program that opens url on goos. $BROWSER wins when
// set.
func command(goos, url string) (string, []string, error) {
	if b := os.Getenv("BROWSER"); b != "" {
		return b, []string{url}, nil
	}
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// Open starts the browser and returns without waiting for it.
func Open(ctx context.Context, url string) error {
	name, args, err := command(runtime.GOOS, url)
	if err != nil {
		return err
	}
	if err := exec.CommandContext(ctx, name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
