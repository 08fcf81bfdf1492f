package eventbus

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

func TestSimpleEventBus_TopicAndWildcard(t *testing.T) {
	bus := NewSimpleEventBus(zerolog.Nop())
	defer bus.Stop()

	setups, err := bus.Subscribe(domain.TaskSetup, 4)
	require.NoError(t, err)
	all, err := bus.Subscribe(AllTopics, 4)
	require.NoError(t, err)

	bus.Publish(domain.Event{Topic: domain.TaskSetup, Task: "A"})
	bus.Publish(domain.Event{Topic: domain.TaskCompleted, Task: "A"})

	require.Len(t, setups, 1)
	assert.Equal(t, "A", (<-setups).Task)

	require.Len(t, all, 2)
	assert.Equal(t, domain.TaskSetup, (<-all).Topic)
	assert.Equal(t, domain.TaskCompleted, (<-all).Topic)
}

func TestSimpleEventBus_DropsOnFullBuffer(t *testing.T) {
	bus := NewSimpleEventBus(zerolog.Nop())
	defer bus.Stop()

	sub, err := bus.Subscribe(domain.TaskFailed, 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		bus.Publish(domain.Event{Topic: domain.TaskFailed})
	}
	assert.Len(t, sub, 1)
	assert.Equal(t, 2, bus.Dropped())
}

func TestSimpleEventBus_DefaultBufferSize(t *testing.T) {
	bus := NewSimpleEventBus(zerolog.Nop()).WithDefaultBufferSize(7)
	defer bus.Stop()

	sub, err := bus.Subscribe(AllTopics, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, cap(sub))

	bus.WithDefaultBufferSize(-1)
	sub, err = bus.Subscribe(AllTopics, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, cap(sub))
}

func TestSimpleEventBus_Unsubscribe(t *testing.T) {
	bus := NewSimpleEventBus(zerolog.Nop())
	defer bus.Stop()

	sub, err := bus.Subscribe(domain.TaskSkipped, 1)
	require.NoError(t, err)
	other, err := bus.Subscribe(domain.TaskSkipped, 1)
	require.NoError(t, err)

	require.NoError(t, bus.Unsubscribe(domain.TaskSkipped, sub))
	require.Error(t, bus.Unsubscribe(domain.TaskSkipped, sub))
	require.Error(t, bus.Unsubscribe("no.such.topic", sub))

	bus.Publish(domain.Event{Topic: domain.TaskSkipped})
	assert.Empty(t, sub)
	assert.Len(t, other, 1)
}

func TestSimpleEventBus_Stop(t *testing.T) {
	bus := NewSimpleEventBus(zerolog.Nop())
	sub, err := bus.Subscribe(AllTopics, 1)
	require.NoError(t, err)

	bus.Stop()
	bus.Stop()

	bus.Publish(domain.Event{Topic: domain.RunStarted})
	assert.Empty(t, sub)

	_, err = bus.Subscribe(AllTopics, 1)
	require.ErrorIs(t, err, ErrStopped)
}

// The bus is usable directly as an orchestrator notifier.
func TestSimpleEventBus_AsNotifier(t *testing.T) {
	bus := NewSimpleEventBus(zerolog.Nop())
	defer bus.Stop()

	completed, err := bus.Subscribe(domain.TaskCompleted, 8)
	require.NoError(t, err)

	o, err := domain.NewOrchestrator([]*domain.Task{domain.NewTask("A")}, domain.WithNotifier(bus))
	require.NoError(t, err)
	_, err = o.Run(t.Context())
	require.NoError(t, err)

	var got []string
	for len(completed) > 0 {
		got = append(got, (<-completed).Task)
	}
	assert.ElementsMatch(t, []string{"Root", "A"}, got)
}
