package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sum-admin/internal/core/database"
	"sum-admin/internal/domain"
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
	require.NoError(t, Migrate(db))
	return db
}

func mustUser(t *testing.T, r *UserRepo, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@x.com", PasswordHash: "h"}
	require.NoError(t, r.Create(context.Background(), u))
	return u
}

func TestUserRepo_CreateAndConflict(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo(newTestDB(t))

	u := mustUser(t, users, "alice")
	assert.NotZero(t, u.ID)
	assert.True(t, u.Active)

	dup := &domain.User{Username: "alice", Email: "other@x.com", PasswordHash: "h"}
	err := users.Create(ctx, dup)
	assert.True(t, domain.IsKind(err, domain.KindConflict), "got %v", err)

	_, err = users.FindByID(ctx, 999)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestUserRepo_UpdateDeactivateList(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo(newTestDB(t))
	a := mustUser(t, users, "alice")
	b := mustUser(t, users, "bob")

	a.FirstName = "Alice"
	require.NoError(t, users.Update(ctx, a))
	got, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FirstName)

	require.NoError(t, users.Deactivate(ctx, b.ID))
	active, err := users.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "alice", active[0].Username)

	all, err := users.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// 软删后仍可按 id 访问
	gone, err := users.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, gone.Active)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, users.TouchLastLogin(ctx, a.ID, now))
	got, err = users.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, now.Equal(got.LastLogin.UTC()))
}

func TestRoleRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	roles := NewRoleRepo(newTestDB(t))

	r := &domain.Role{Name: "ADMIN", Description: "all"}
	require.NoError(t, roles.Create(ctx, r))
	assert.True(t, domain.IsKind(roles.Create(ctx, &domain.Role{Name: "ADMIN"}), domain.KindConflict))

	r.Description = "todo"
	require.NoError(t, roles.Update(ctx, r))
	got, err := roles.FindByName(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, "todo", got.Description)

	require.NoError(t, roles.Deactivate(ctx, r.ID))
	listed, err := roles.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestAssignmentRepo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users, roles, links := NewUserRepo(db), NewRoleRepo(db), NewAssignmentRepo(db)

	a, b := mustUser(t, users, "alice"), mustUser(t, users, "bob")
	admin := &domain.Role{Name: "ADMIN"}
	user := &domain.Role{Name: "USER"}
	require.NoError(t, roles.Create(ctx, admin))
	require.NoError(t, roles.Create(ctx, user))

	created, err := links.Assign(ctx, a.ID, admin.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = links.Assign(ctx, a.ID, admin.ID)
	require.NoError(t, err)
	assert.False(t, created, "duplicate assignment must not write")

	_, err = links.Assign(ctx, a.ID, user.ID)
	require.NoError(t, err)
	_, err = links.Assign(ctx, b.ID, admin.ID)
	require.NoError(t, err)

	ids, err := links.RoleIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{admin.ID, user.ID}, ids)

	holders, err := links.HolderIDs(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, holders)

	holderUsers, err := links.HoldersByRole(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, holderUsers, 2)
	assert.Equal(t, "alice", holderUsers[0].Username)

	byUser, err := links.RolesByUser(ctx, []int64{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, byUser[a.ID], 2)
	assert.Len(t, byUser[b.ID], 1)

	n, err := links.RemoveRoleFrom(ctx, admin.ID, []int64{a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	holders, err = links.HolderIDs(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, holders, "users outside the list keep the role")

	n, err = links.RemoveRoleFrom(ctx, admin.ID, holders)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	holders, err = links.HolderIDs(ctx, admin.ID)
	require.NoError(t, err)
	assert.Empty(t, holders)

	n, err = links.RemoveRoleFrom(ctx, admin.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuditRepo_FindFilters(t *testing.T) {
	ctx := context.Background()
	audit := NewAuditRepo(newTestDB(t))

	uid := int64(7)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []domain.AuditLogEntry{
		{Timestamp: base, UserID: &uid, EventType: "user_created", Module: domain.ModuleUsers, Action: "a"},
		{Timestamp: base.Add(24 * time.Hour), UserID: &uid, EventType: "role_assigned", Module: domain.ModuleRoles, Action: "b"},
		{Timestamp: base.Add(48 * time.Hour), EventType: "role_created", Module: domain.ModuleRoles, Action: "c"},
	}
	for i := range entries {
		require.NoError(t, audit.Append(ctx, &entries[i]))
	}
	assert.Equal(t, domain.SystemUsername, entries[2].Username)
	assert.Equal(t, domain.LevelInfo, entries[2].Level)

	all, err := audit.Find(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Action, "newest first")

	module := domain.ModuleRoles
	got, err := audit.Find(ctx, domain.AuditFilter{UserID: &uid, Module: &module})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Action)

	from := base.Add(time.Hour)
	got, err = audit.Find(ctx, domain.AuditFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	to := base.Add(25 * time.Hour)
	got, err = audit.Find(ctx, domain.AuditFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Action)

	got, err = audit.Find(ctx, domain.AuditFilter{To: &to})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	byUser, err := audit.ByUsers(ctx, []int64{uid})
	require.NoError(t, err)
	assert.Len(t, byUser[uid], 2)
}
