package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"sum-admin/internal/event"
)

type captureSender struct {
	notices []Notice
	err     error
}

func (s *captureSender) Send(_ context.Context, n Notice) error {
	s.notices = append(s.notices, n)
	return s.err
}

func TestNotifier_Messages(t *testing.T) {
	cases := []struct {
		typ      event.Type
		data     map[string]any
		subject  string
		audience Audience
	}{
		{event.UserCreated, map[string]any{"username": "alice", "email": "a@x.com"}, "Nuevo usuario creado - alice (a@x.com)", AudienceUser},
		{event.UserUpdated, map[string]any{"username": "alice"}, "Usuario actualizado - alice", AudienceUser},
		{event.UserDeleted, map[string]any{}, "Usuario eliminado - desconocido", AudienceUser},
		{event.RoleCreated, map[string]any{"nombre": "ADMIN"}, "Nuevo rol creado - ADMIN", AudienceAdmins},
		{event.RoleDeleted, map[string]any{"nombre": "ADMIN"}, "Rol eliminado - ADMIN", AudienceHolder},
		{event.RoleAssigned, map[string]any{"username": "alice", "rolNombre": "USER"}, "Rol asignado - Usuario: alice, Rol: USER", AudienceUser},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			s := &captureSender{}
			n := NewNotifier(s, zap.NewNop())
			require.NoError(t, n.Handle(context.Background(), envelope(t, tc.typ, tc.data)))
			require.Len(t, s.notices, 1)
			assert.Equal(t, tc.subject, s.notices[0].Subject)
			assert.Equal(t, tc.audience, s.notices[0].Audience)
			assert.Equal(t, tc.typ, s.notices[0].EventType)
		})
	}
}

func TestNotifier_NeverFails(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := &captureSender{err: errors.New("smtp down")}
	n := NewNotifier(s, zap.New(core))

	assert.NoError(t, n.Handle(context.Background(), envelope(t, event.UserCreated, map[string]any{"username": "a"})))
	assert.NoError(t, n.Handle(context.Background(), event.Envelope{EventType: "unknown", Data: []byte(`{}`)}))

	assert.Equal(t, 1, logs.FilterMessage("send notification failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("unrecognized event type").Len())
}

func TestNotifier_DefaultsToLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewNotifier(nil, zap.New(core))
	require.NoError(t, n.Handle(context.Background(), envelope(t, event.RoleCreated, map[string]any{"nombre": "OPS"})))
	assert.Equal(t, 1, logs.FilterMessage("NOTIFICACIÓN: Nuevo rol creado - OPS").Len())
}
