package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"sum-admin/internal/core/auth"
	"sum-admin/internal/core/database"
	"sum-admin/internal/domain"
	"sum-admin/internal/event"
	"sum-admin/internal/eventbus/memory"
	"sum-admin/internal/repo"
)

type fixture struct {
	users *UserService
	roles *RoleService
	rec   *memory.Recorder
	links *repo.AssignmentRepo
	jwt   *auth.JWTer
}

func newFixture(t *testing.T, l *zap.Logger) *fixture {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(db))
	if l == nil {
		l = zap.NewNop()
	}

	f := &fixture{
		rec:   &memory.Recorder{},
		links: repo.NewAssignmentRepo(db),
		jwt:   &auth.JWTer{Secret: []byte("test"), Issuer: "sum-admin", TTL: time.Minute},
	}
	roles := repo.NewRoleRepo(db)
	f.users = NewUserService(repo.NewUserRepo(db), roles, f.links, f.rec, f.jwt, l)
	f.roles = NewRoleService(roles, f.links, f.rec, l)
	return f
}

func data(t *testing.T, e event.Envelope) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(e.Data, &m))
	return m
}

func alice() CreateUserInput {
	return CreateUserInput{Username: "alice", Email: "a@x.com", Password: "secret1", FirstName: "Alice"}
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	u, err := f.users.CreateUser(ctx, alice())
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	evs := f.rec.OfType(event.UserCreated)
	require.Len(t, evs, 1)
	assert.Equal(t, "/usuarios/created", evs[0].Subject)
	d := data(t, evs[0])
	assert.EqualValues(t, u.ID, d["idUsuario"])
	assert.Equal(t, "alice", d["username"])
	assert.NotContains(t, d, "password")

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
}

func TestCreateUser_ValidationAndConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.users.CreateUser(ctx, CreateUserInput{Username: " ", Email: "a@x.com", Password: "p"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	_, err = f.users.CreateUser(ctx, CreateUserInput{Username: "a", Email: "nope", Password: "p"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = f.users.CreateUser(ctx, alice())
	require.NoError(t, err)
	_, err = f.users.CreateUser(ctx, alice())
	assert.True(t, domain.IsKind(err, domain.KindConflict), "got %v", err)

	other := alice()
	other.Username = "alice2"
	_, err = f.users.CreateUser(ctx, other)
	assert.True(t, domain.IsKind(err, domain.KindConflict), "email reused: %v", err)

	assert.Len(t, f.rec.Events(), 1, "failed writes publish nothing")
}

func TestUpdateUser_PartialWithSnapshots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u, err := f.users.CreateUser(ctx, alice())
	require.NoError(t, err)

	mail := "new@x.com"
	got, err := f.users.UpdateUser(ctx, u.ID, domain.UserPatch{Email: &mail})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", got.Email)
	assert.Equal(t, "Alice", got.FirstName)

	evs := f.rec.OfType(event.UserUpdated)
	require.Len(t, evs, 1)
	d := data(t, evs[0])
	assert.Equal(t, "a@x.com", d["datosPrevios"].(map[string]any)["email"])
	assert.Equal(t, "new@x.com", d["datosNuevos"].(map[string]any)["email"])

	_, err = f.users.UpdateUser(ctx, 999, domain.UserPatch{Email: &mail})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	bob, err := f.users.CreateUser(ctx, CreateUserInput{Username: "bob", Email: "b@x.com", Password: "p"})
	require.NoError(t, err)
	_, err = f.users.UpdateUser(ctx, bob.ID, domain.UserPatch{Email: &mail})
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	// 用回自己的值不算冲突
	_, err = f.users.UpdateUser(ctx, u.ID, domain.UserPatch{Email: &mail})
	assert.NoError(t, err)
}

func TestDeleteUser_SoftAndRepeatable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u, err := f.users.CreateUser(ctx, alice())
	require.NoError(t, err)

	require.NoError(t, f.users.DeleteUser(ctx, u.ID))
	require.NoError(t, f.users.DeleteUser(ctx, u.ID))
	assert.True(t, domain.IsKind(f.users.DeleteUser(ctx, 404), domain.KindNotFound))

	list, err := f.users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := f.users.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Len(t, f.rec.OfType(event.UserDeleted), 2)
}

func TestAssignRole_PublishesOnlyOnNewRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u, err := f.users.CreateUser(ctx, alice())
	require.NoError(t, err)
	r, err := f.roles.CreateRole(ctx, CreateRoleInput{Name: "ADMIN"})
	require.NoError(t, err)

	ids, err := f.users.AssignRole(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{r.ID}, ids)
	ids, err = f.users.AssignRole(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{r.ID}, ids)

	evs := f.rec.OfType(event.RoleAssigned)
	require.Len(t, evs, 1)
	d := data(t, evs[0])
	assert.Equal(t, "alice", d["username"])
	assert.Equal(t, "ADMIN", d["rolNombre"])

	_, err = f.users.AssignRole(ctx, u.ID, 999)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	_, err = f.users.AssignRole(ctx, 999, r.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	roles, err := f.users.UserRoles(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "ADMIN", roles[0].Name)

	holders, err := f.roles.RoleUsers(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{u.ID}, holders)
}

func TestRoles_CRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.roles.CreateRole(ctx, CreateRoleInput{})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	r, err := f.roles.CreateRole(ctx, CreateRoleInput{Name: "ADMIN", Description: "todo"})
	require.NoError(t, err)
	_, err = f.roles.CreateRole(ctx, CreateRoleInput{Name: "ADMIN"})
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	desc := "casi todo"
	got, err := f.roles.UpdateRole(ctx, r.ID, domain.RolePatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", got.Name)

	require.NoError(t, f.roles.DeleteRole(ctx, r.ID))
	list, err := f.roles.ListRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Len(t, f.rec.OfType(event.RoleCreated), 1)
	assert.Len(t, f.rec.OfType(event.RoleUpdated), 1)
	del := f.rec.OfType(event.RoleDeleted)
	require.Len(t, del, 1)
	assert.Equal(t, "ADMIN", data(t, del[0])["nombre"])

	_, err = f.roles.RoleUsers(ctx, 999)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestPublishFailureIsNotSurfaced(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, zap.New(core))
	f.rec.Err = errors.New("broker down")

	u, err := f.users.CreateUser(ctx, alice())
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, 1, logs.FilterMessage("event publish failed").Len())
}

func TestActorAttached(t *testing.T) {
	uid := int64(9)
	ctx := event.WithActor(context.Background(), &event.Actor{UserID: &uid, Username: "root", IP: "1.2.3.4"})
	f := newFixture(t, nil)

	_, err := f.roles.CreateRole(ctx, CreateRoleInput{Name: "OPS"})
	require.NoError(t, err)
	evs := f.rec.Events()
	require.Len(t, evs, 1)
	require.NotNil(t, evs[0].Actor)
	assert.Equal(t, "root", evs[0].Actor.Username)
	assert.Equal(t, "1.2.3.4", evs[0].Actor.IP)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	u, err := f.users.CreateUser(ctx, alice())
	require.NoError(t, err)

	res, err := f.users.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLogin)
	claims, err := f.jwt.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UID)

	_, err = f.users.Login(ctx, "alice", "wrong")
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
	_, err = f.users.Login(ctx, "ghost", "secret1")
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	require.NoError(t, f.users.DeleteUser(ctx, u.ID))
	_, err = f.users.Login(ctx, "alice", "secret1")
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized), "inactive users cannot log in")
}
