package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sum-admin/internal/event"
)

func TestBus_FanOutAndFilter(t *testing.T) {
	bus := NewBus(nil)
	var all, onlyRoles []event.Type

	bus.Subscribe("all", event.HandlerFunc(func(_ context.Context, e event.Envelope) error {
		all = append(all, e.EventType)
		return nil
	}))
	bus.Subscribe("roles", event.HandlerFunc(func(_ context.Context, e event.Envelope) error {
		onlyRoles = append(onlyRoles, e.EventType)
		return errors.New("ignored")
	}), event.RoleDeleted)

	for _, typ := range []event.Type{event.UserCreated, event.RoleDeleted} {
		e, err := event.New(typ, "/x", map[string]any{})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), e))
	}

	assert.Equal(t, []event.Type{event.UserCreated, event.RoleDeleted}, all)
	assert.Equal(t, []event.Type{event.RoleDeleted}, onlyRoles)
}

func TestBus_ReentrantPublish(t *testing.T) {
	bus := NewBus(nil)
	var seen []event.Type
	bus.Subscribe("chain", event.HandlerFunc(func(ctx context.Context, e event.Envelope) error {
		seen = append(seen, e.EventType)
		if e.EventType == event.UserCreated {
			next, _ := event.New(event.RoleAssignedAuto, "/auto", map[string]any{})
			return bus.Publish(ctx, next)
		}
		return nil
	}))

	e, _ := event.New(event.UserCreated, "/usuarios/created", map[string]any{})
	require.NoError(t, bus.Publish(context.Background(), e))
	assert.Equal(t, []event.Type{event.UserCreated, event.RoleAssignedAuto}, seen)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	e, _ := event.New(event.RoleCreated, "/roles/created", map[string]any{})
	require.NoError(t, r.Publish(context.Background(), e))
	assert.Len(t, r.OfType(event.RoleCreated), 1)
	assert.Empty(t, r.OfType(event.RoleDeleted))

	r.Err = errors.New("down")
	assert.Error(t, r.Publish(context.Background(), e))
	assert.Len(t, r.Events(), 1)
}
