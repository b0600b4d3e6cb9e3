package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coact/pkg/types"
)

func TestBroadcasterDeliversInOrder(t *testing.T) {
	bc := NewBroadcaster(nil)
	defer bc.Close()

	ch, cancel := bc.Subscribe(8)
	defer cancel()

	bc.Publish(Event{Type: "a"})
	bc.Publish(Event{Type: "b"})
	bc.Publish(Event{Type: "c"})

	assert.Equal(t, "a", (<-ch).Type)
	assert.Equal(t, "b", (<-ch).Type)
	assert.Equal(t, "c", (<-ch).Type)
}

func TestBroadcasterNeverBlocksOnSlowObserver(t *testing.T) {
	bc := NewBroadcaster(nil)
	defer bc.Close()

	// Subscriber with a queue of 2 that never reads.
	ch, cancel := bc.Subscribe(2)
	defer cancel()

	// Far more events than the queue holds; Publish must return.
	for i := 0; i < 100; i++ {
		bc.Publish(Event{Type: "evt", Data: i})
	}

	// The queue holds the most recent events, oldest dropped.
	first := <-ch
	second := <-ch
	assert.Equal(t, 98, first.Data)
	assert.Equal(t, 99, second.Data)
}

func TestBroadcasterFanOut(t *testing.T) {
	bc := NewBroadcaster(nil)
	defer bc.Close()

	ch1, cancel1 := bc.Subscribe(4)
	defer cancel1()
	ch2, cancel2 := bc.Subscribe(4)
	defer cancel2()

	bc.Publish(Event{Type: "x"})

	assert.Equal(t, "x", (<-ch1).Type)
	assert.Equal(t, "x", (<-ch2).Type)
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	bc := NewBroadcaster(nil)
	defer bc.Close()

	ch, cancel := bc.Subscribe(1)
	cancel()

	_, open := <-ch
	require.False(t, open)

	// Publishing after cancel must not panic.
	bc.Publish(Event{Type: "late"})
}

func TestStatusBoardPublishesSnapshots(t *testing.T) {
	bc := NewBroadcaster(nil)
	defer bc.Close()
	board := NewStatusBoard(bc)

	ch, cancel := bc.Subscribe(8)
	defer cancel()

	board.Set(types.RoleProgrammer, types.RoleProcessing)
	evt := <-ch
	require.Equal(t, TypeAgentState, evt.Type)
	data := evt.Data.(AgentStateData)
	assert.Equal(t, types.RoleProcessing, data.Programmer)
	assert.Equal(t, types.RoleIdle, data.Orchestrator)

	board.Set(GroundingModelRole, types.RoleError)
	data = (<-ch).Data.(AgentStateData)
	assert.Equal(t, types.RoleError, data.GroundingModel)
	assert.Equal(t, types.RoleProcessing, data.Programmer)

	board.Reset()
	data = (<-ch).Data.(AgentStateData)
	assert.Equal(t, types.RoleIdle, data.Programmer)
	assert.Equal(t, types.RoleIdle, data.GroundingModel)
}
