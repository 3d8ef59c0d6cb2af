package selection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"wallswitch/internal/database"
)

// PathPlaceholder in a command argument is replaced with the wallpaper path.
const PathPlaceholder = "{path}"

// CommandSetter sets wallpapers by running an external program, such as
// "feh --bg-fill {path}" or "swww img {path}". When no argument contains
// PathPlaceholder the path is appended.
type CommandSetter struct {
	Args []string
}

// NewCommandSetter splits a command line on whitespace.
func NewCommandSetter(command string) (*CommandSetter, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, errors.New("empty wallpaper command")
	}
	return &CommandSetter{Args: args}, nil
}

// SetWallpaper runs the command for r.
func (c *CommandSetter) SetWallpaper(ctx context.Context, r database.Resource) error {
	args := make([]string, 0, len(c.Args)+1)
	substituted := false
	for _, a := range c.Args {
		if strings.Contains(a, PathPlaceholder) {
			a = strings.ReplaceAll(a, PathPlaceholder, r.FilePath)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, r.FilePath)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

// LogSetter only logs the chosen wallpaper. It is used when no command is
// configured.
type LogSetter struct{}

// SetWallpaper logs r.
func (LogSetter) SetWallpaper(ctx context.Context, r database.Resource) error {
	log.Info("Selected %s (no wallpaper command configured)", r.FilePath)
	return nil
}
