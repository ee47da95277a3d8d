package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sum-admin/internal/event"
	"sum-admin/internal/eventbus/memory"
	"sum-admin/internal/repo"
)

func newAutomation(t *testing.T) (*RoleAutomation, *repo.AssignmentRepo, *memory.Recorder) {
	t.Helper()
	links := repo.NewAssignmentRepo(newTestDB(t))
	rec := &memory.Recorder{}
	return NewRoleAutomation(links, rec, AutomationConfig{DefaultRoleID: 2, DefaultRoleName: "USER"}, zap.NewNop()), links, rec
}

func TestAutomation_AssignsDefaultRole(t *testing.T) {
	ctx := context.Background()
	a, links, rec := newAutomation(t)

	require.NoError(t, a.Handle(ctx, envelope(t, event.UserCreated, map[string]any{"idUsuario": 5, "username": "alice"})))

	ids, err := links.RoleIDs(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)

	evs := rec.OfType(event.RoleAssignedAuto)
	require.Len(t, evs, 1)
	assert.Equal(t, "/usuarios/roles/asignacion_automatica", evs[0].Subject)
	var data map[string]any
	require.NoError(t, json.Unmarshal(evs[0].Data, &data))
	assert.EqualValues(t, 5, data["idUsuario"])
	assert.EqualValues(t, 2, data["idRol"])
	assert.Equal(t, "USER", data["rolNombre"])
	assert.Equal(t, "alice", data["username"])
	assert.Equal(t, true, data["asignacionAutomatica"])
}

func TestAutomation_AlreadyHeldIsNoop(t *testing.T) {
	ctx := context.Background()
	a, links, rec := newAutomation(t)
	_, err := links.Assign(ctx, 5, 2)
	require.NoError(t, err)

	require.NoError(t, a.Handle(ctx, envelope(t, event.UserCreated, map[string]any{"idUsuario": 5})))
	assert.Empty(t, rec.Events())
}

func TestAutomation_NestedPayloadAndUnknownUsername(t *testing.T) {
	ctx := context.Background()
	a, _, rec := newAutomation(t)

	require.NoError(t, a.Handle(ctx, envelope(t, event.UserCreated, map[string]any{
		"members": map[string]any{"idUsuario": map[string]any{"value": "8"}},
	})))
	evs := rec.OfType(event.RoleAssignedAuto)
	require.Len(t, evs, 1)
	var data map[string]any
	require.NoError(t, json.Unmarshal(evs[0].Data, &data))
	assert.Equal(t, "desconocido", data["username"])
}

func TestAutomation_MissingUserIDSkips(t *testing.T) {
	ctx := context.Background()
	a, _, rec := newAutomation(t)
	require.NoError(t, a.Handle(ctx, envelope(t, event.UserCreated, map[string]any{"username": "ghost"})))
	assert.Empty(t, rec.Events())
}

func TestAutomation_RoleDeletedWithoutHolders(t *testing.T) {
	ctx := context.Background()
	a, _, rec := newAutomation(t)
	require.NoError(t, a.Handle(ctx, envelope(t, event.RoleDeleted, map[string]any{"idRol": 9})))
	assert.Empty(t, rec.Events())
}

func TestAutomation_RoleDeletedEmitsPerHolder(t *testing.T) {
	ctx := context.Background()
	a, links, rec := newAutomation(t)
	for _, uid := range []int64{10, 11} {
		_, err := links.Assign(ctx, uid, 5)
		require.NoError(t, err)
	}

	require.NoError(t, a.Handle(ctx, envelope(t, event.RoleDeleted, map[string]any{"idRol": 5, "nombre": "AUDITOR"})))

	evs := rec.OfType(event.RoleRemovedAuto)
	require.Len(t, evs, 2)
	got := map[float64]bool{}
	for _, e := range evs {
		var data map[string]any
		require.NoError(t, json.Unmarshal(e.Data, &data))
		got[data["idUsuario"].(float64)] = true
		assert.Equal(t, "AUDITOR", data["rolNombre"])
		assert.Equal(t, true, data["eliminacionAutomatica"])
	}
	assert.Equal(t, map[float64]bool{10: true, 11: true}, got)
}

// lateAssignLinks 在读取持有者之后插入一条新的分配，模拟并发的 AssignRole
type lateAssignLinks struct {
	*repo.AssignmentRepo
	userID int64
}

func (l lateAssignLinks) HolderIDs(ctx context.Context, roleID int64) ([]int64, error) {
	ids, err := l.AssignmentRepo.HolderIDs(ctx, roleID)
	if err != nil {
		return nil, err
	}
	_, err = l.Assign(ctx, l.userID, roleID)
	return ids, err
}

func TestAutomation_RoleDeletedKeepsLateAssignment(t *testing.T) {
	ctx := context.Background()
	links := repo.NewAssignmentRepo(newTestDB(t))
	rec := &memory.Recorder{}
	a := NewRoleAutomation(lateAssignLinks{AssignmentRepo: links, userID: 12}, rec,
		AutomationConfig{DefaultRoleID: 2, DefaultRoleName: "USER"}, zap.NewNop())
	for _, uid := range []int64{10, 11} {
		_, err := links.Assign(ctx, uid, 5)
		require.NoError(t, err)
	}

	require.NoError(t, a.Handle(ctx, envelope(t, event.RoleDeleted, map[string]any{"idRol": 5, "nombre": "AUDITOR"})))

	assert.Len(t, rec.OfType(event.RoleRemovedAuto), 2)
	ids, err := links.RoleIDs(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids, "a holder that was never announced as removed keeps the role")
	holders, err := links.HolderIDs(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{12}, holders)
}

func TestAutomation_PublishFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	a, links, rec := newAutomation(t)
	rec.Err = errors.New("broker down")

	require.NoError(t, a.Handle(ctx, envelope(t, event.UserCreated, map[string]any{"idUsuario": 3})))
	ids, err := links.RoleIDs(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids, "assignment stays even if the event is lost")
}

func TestAutomation_IgnoresOtherTypes(t *testing.T) {
	a, _, rec := newAutomation(t)
	require.NoError(t, a.Handle(context.Background(), envelope(t, event.RoleCreated, map[string]any{"idRol": 1})))
	assert.Empty(t, rec.Events())
}
