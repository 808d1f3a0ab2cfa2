package command_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/fmtr/relkit/pkg/infra/command"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

func TestRunner_Run(t *testing.T) {
	requireShell(t)
	ctx := context.Background()

	t.Run("captures combined output in dir", func(t *testing.T) {
		dir := t.TempDir()
		gt.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte("here"), 0644))

		out, err := command.NewRunner().Run(ctx, dir, "sh", "-c", "cat marker; echo oops 1>&2")
		gt.NoError(t, err)
		gt.String(t, string(out)).Contains("here")
		gt.String(t, string(out)).Contains("oops")
	})

	t.Run("passes extra environment", func(t *testing.T) {
		out, err := command.NewRunner(command.WithEnv("RELKIT_TEST=42")).Run(ctx, t.TempDir(), "sh", "-c", "echo $RELKIT_TEST")
		gt.NoError(t, err)
		gt.Equal(t, string(out), "42\n")
	})

	t.Run("returns failure with output", func(t *testing.T) {
		out, err := command.NewRunner().Run(ctx, t.TempDir(), "sh", "-c", "echo broken build; exit 3")
		gt.Error(t, err)
		gt.String(t, string(out)).Contains("broken build")

		var exitErr *exec.ExitError
		gt.True(t, errors.As(err, &exitErr))
		gt.Equal(t, exitErr.ExitCode(), 3)
	})

	t.Run("missing program", func(t *testing.T) {
		_, err := command.NewRunner().Run(ctx, t.TempDir(), "relkit-no-such-program")
		gt.Error(t, err)
	})
}
