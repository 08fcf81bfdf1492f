package kinds

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestNewCommand(t *testing.T) {
	body, err := newCommand(domain.Description{Attributes: map[string]any{
		"command":  `sh -c 'echo "a b"'`,
		"teardown": "true",
		"dir":      "/tmp",
		"env":      map[string]any{"N": 1},
	}})
	require.NoError(t, err)
	cmd := body.(*CommandBody)
	assert.Equal(t, []string{"sh", "-c", `echo "a b"`}, cmd.Args)
	assert.Equal(t, []string{"true"}, cmd.TeardownArgs)
	assert.Equal(t, "/tmp", cmd.Dir)
	assert.Equal(t, []string{"N=1"}, cmd.Env)

	body, err = newCommand(domain.Description{Attributes: map[string]any{
		"args": []any{"echo", "hi there"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "hi there"}, body.(*CommandBody).Args)

	_, err = newCommand(domain.Description{})
	require.Error(t, err)
	_, err = newCommand(domain.Description{Attributes: map[string]any{"args": []any{"echo", 3}}})
	require.Error(t, err)
	_, err = newCommand(domain.Description{Attributes: map[string]any{"command": `echo "unterminated`}})
	require.Error(t, err)
}

func TestCommandBody_Run(t *testing.T) {
	requireSh(t)

	marker := filepath.Join(t.TempDir(), "torn-down")
	attrs := map[string]any{
		"args":          []any{"sh", "-c", "echo $GREETING"},
		"teardown_args": []any{"sh", "-c", "touch " + marker},
		"env":           map[string]any{"GREETING": "hello"},
	}
	body, err := newCommand(domain.Description{Attributes: attrs})
	require.NoError(t, err)

	got, err := run(t, body, attrs)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.FileExists(t, marker)
}

func TestCommandBody_Failures(t *testing.T) {
	requireSh(t)

	body := &CommandBody{Args: []string{"sh", "-c", "echo oops >&2; exit 3"}}
	_, err := run(t, body, nil)
	require.ErrorContains(t, err, "exit status 3")
	assert.ErrorContains(t, err, "oops")

	missing := &CommandBody{Args: []string{"definitely-not-a-real-program-xyz"}}
	_, err = run(t, missing, nil)
	require.ErrorIs(t, err, exec.ErrNotFound)
}

func TestCommandBody_CancelWithLingeringChild(t *testing.T) {
	requireSh(t)

	// The background sleep keeps stdout open after sh is killed.
	body := &CommandBody{Args: []string{"sh", "-c", "sleep 30 & wait; echo finished"}}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := body.Run(ctx, domain.NewTask("lingering"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), commandWaitDelay+5*time.Second)
}
