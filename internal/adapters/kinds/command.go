package kinds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// commandWaitDelay bounds how long a cancelled command may keep its output
// pipes open, for example through a child process it started.
const commandWaitDelay = time.Second

// CommandBody runs an external program. Its Run hook returns the trimmed
// standard output; a non-zero exit fails the task with its standard error.
type CommandBody struct {
	Args         []string
	TeardownArgs []string // Optional command run when the task is torn down
	Dir          string
	Env          []string
}

func newCommand(d domain.Description) (domain.Body, error) {
	args, err := commandArgs(d.Attributes, "command", "args")
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, errors.New("one of 'command' or 'args' is required")
	}
	teardown, err := commandArgs(d.Attributes, "teardown", "teardown_args")
	if err != nil {
		return nil, err
	}

	dir, _, err := attrString(d.Attributes, "dir")
	if err != nil {
		return nil, err
	}
	envMap, err := attrStringMap(d.Attributes, "env")
	if err != nil {
		return nil, err
	}
	var env []string
	for k, v := range envMap {
		env = append(env, k+"="+v)
	}

	return &CommandBody{Args: args, TeardownArgs: teardown, Dir: dir, Env: env}, nil
}

// commandArgs reads a command either as one shell-like line or as an argv list.
func commandArgs(attrs map[string]any, lineKey, listKey string) ([]string, error) {
	line, ok, err := attrString(attrs, lineKey)
	if err != nil {
		return nil, err
	}
	if ok {
		args, err := shellwords.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", lineKey, err)
		}
		return args, nil
	}
	return attrStrings(attrs, listKey)
}

// Setup checks that the program can be found.
func (c *CommandBody) Setup(context.Context, *domain.Task) error {
	if _, err := exec.LookPath(c.Args[0]); err != nil {
		return err
	}
	return nil
}

func (c *CommandBody) Run(ctx context.Context, _ *domain.Task) (any, error) {
	return c.exec(ctx, c.Args)
}

func (c *CommandBody) Teardown(ctx context.Context, _ *domain.Task) error {
	if len(c.TeardownArgs) == 0 {
		return nil
	}
	_, err := c.exec(ctx, c.TeardownArgs)
	return err
}

func (c *CommandBody) exec(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = commandWaitDelay
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("%s: %w", args[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
