package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("task", "A").Msg("visible")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"task":"A"`)
	assert.Contains(t, out, `"level":"warn"`)

	buf.Reset()
	logger, err = New(&buf, "DEBUG", "console")
	require.NoError(t, err)
	logger.Debug().Msg("console line")
	assert.Contains(t, buf.String(), "console line")
	assert.False(t, strings.HasPrefix(buf.String(), "{"))

	_, err = New(&buf, "loud", "json")
	require.Error(t, err)
	_, err = New(&buf, "info", "xml")
	require.Error(t, err)
}

func TestLifecyclePrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewLifecyclePrinter(&buf)
	ts := time.Date(2024, 5, 1, 12, 4, 5, 123456000, time.UTC)

	p.Publish(domain.Event{Topic: domain.TaskSetup, Task: "A", Timestamp: ts})
	p.Publish(domain.Event{Topic: domain.TaskRunning, Task: "A", Timestamp: ts})
	p.Publish(domain.Event{Topic: domain.TaskCompleted, Task: "A", Timestamp: ts})
	p.Publish(domain.Event{Topic: domain.TaskTeardown, Task: "A", Timestamp: ts})
	p.Publish(domain.Event{Topic: domain.TaskSkipped, Task: "B", Timestamp: ts, Err: errors.New(`dependency "A" did not complete`)})
	p.Publish(domain.Event{Topic: domain.RunCompleted, Timestamp: ts})

	want := `[12:04:05.123456] Setting up task: A
[12:04:05.123456] Running task: A
[12:04:05.123456] Tearing down task: A
[12:04:05.123456] Skipping task: B (dependency "A" did not complete)
`
	assert.Equal(t, want, buf.String())
}
