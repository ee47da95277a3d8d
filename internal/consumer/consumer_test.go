package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sum-admin/internal/core/database"
	"sum-admin/internal/domain"
	"sum-admin/internal/event"
	"sum-admin/internal/eventbus/memory"
	"sum-admin/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(db))
	return db
}

func envelope(t *testing.T, typ event.Type, data any) event.Envelope {
	t.Helper()
	e, err := event.New(typ, "/test", data)
	require.NoError(t, err)
	return e
}

func TestInstrument_KeepsIdentity(t *testing.T) {
	a := Instrument(NewAuditor(repo.NewAuditRepo(newTestDB(t)), zap.NewNop()))
	assert.Equal(t, "auditor", a.Name())
	assert.Equal(t, event.All, a.Topics())
}

func TestEndToEnd_UserCreatedFansOut(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	audits := repo.NewAuditRepo(db)
	links := repo.NewAssignmentRepo(db)
	sender := &captureSender{}

	bus := memory.NewBus(zap.NewNop())
	for _, c := range []Consumer{
		NewAuditor(audits, zap.NewNop()),
		NewNotifier(sender, zap.NewNop()),
		NewRoleAutomation(links, bus, AutomationConfig{DefaultRoleID: 2, DefaultRoleName: "USER"}, zap.NewNop()),
	} {
		c := Instrument(c)
		bus.Subscribe(c.Name(), c, c.Topics()...)
	}

	require.NoError(t, bus.Publish(ctx, envelope(t, event.UserCreated, map[string]any{
		"idUsuario": 5, "username": "alice", "email": "a@x.com",
	})))

	rows, err := audits.Find(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1, "role_assigned_auto is not audited")
	assert.Equal(t, "user_created", rows[0].EventType)
	assert.Equal(t, domain.ModuleUsers, rows[0].Module)

	roles, err := links.RoleIDs(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, roles)

	// 原事件 + 自动分配事件各一条通知
	require.Len(t, sender.notices, 2)
	assert.Equal(t, "Nuevo usuario creado - alice (a@x.com)", sender.notices[0].Subject)
	assert.Equal(t, event.RoleAssignedAuto, sender.notices[1].EventType)
}

func TestEndToEnd_RoleDeletedRemovesHolders(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	links := repo.NewAssignmentRepo(db)
	for _, uid := range []int64{10, 11} {
		_, err := links.Assign(ctx, uid, 5)
		require.NoError(t, err)
	}

	rec := &memory.Recorder{}
	bus := memory.NewBus(zap.NewNop())
	auto := NewRoleAutomation(links, rec, AutomationConfig{}, zap.NewNop())
	bus.Subscribe(auto.Name(), auto, auto.Topics()...)

	raw, _ := json.Marshal(map[string]any{"idRol": 5, "nombre": "AUDITOR"})
	require.NoError(t, bus.Publish(ctx, event.Envelope{ID: "1", EventType: event.RoleDeleted, Data: raw}))

	holders, err := links.HolderIDs(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, holders)
	assert.Len(t, rec.OfType(event.RoleRemovedAuto), 2)
}
