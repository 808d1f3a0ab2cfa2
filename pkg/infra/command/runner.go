package command

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
)

// outputLimit caps how much command output is attached to an error
const outputLimit = 4096

type runner struct {
	env []string
}

// Option configures the runner
type Option func(*runner)

// WithEnv appends KEY=VALUE pairs to the inherited environment
func WithEnv(env ...string) Option {
	return func(r *runner) {
		r.env = append(r.env, env...)
	}
}

// NewRunner creates a CommandRunner executing local programs
func NewRunner(opts ...Option) interfaces.CommandRunner {
	r := &runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (x *runner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	logger := ctxlog.From(ctx)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(x.env) > 0 {
		cmd.Env = append(cmd.Environ(), x.env...)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Debug("Running command",
		"dir", dir,
		"command", name,
		"args", strings.Join(args, " "))

	started := time.Now()
	err := cmd.Run()
	logger.Debug("Command finished",
		"command", name,
		"duration", time.Since(started),
		"output_size", out.Len())

	if err != nil {
		return out.Bytes(), goerr.Wrap(err, "command failed",
			goerr.V("dir", dir),
			goerr.V("command", name),
			goerr.V("args", args),
			goerr.V("output", tail(out.String(), outputLimit)))
	}

	return out.Bytes(), nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "...(truncated)" + s[len(s)-n:]
}
