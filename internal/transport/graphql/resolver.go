package graphql

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	gql "github.com/graph-gophers/graphql-go"

	"sum-admin/internal/audit"
	"sum-admin/internal/domain"
)

// DateLayout 日期的输入输出格式（UTC，无时区后缀）
const DateLayout = "2006-01-02T15:04:05"

func fmtTime(t time.Time) string { return t.UTC().Format(DateLayout) }

func optTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := fmtTime(*t)
	return &s
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha inválida %q, formato esperado %s", s, DateLayout)
	}
	return t, nil
}

func parseID(id gql.ID) (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ID invalido: %q", string(id))
	}
	return n, nil
}

func toID(n int64) gql.ID { return gql.ID(strconv.FormatInt(n, 10)) }

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Resolver 根查询
type Resolver struct {
	svc *audit.Service
}

func NewResolver(svc *audit.Service) *Resolver { return &Resolver{svc: svc} }

func (r *Resolver) Usuario(ctx context.Context, args struct{ IDUsuario gql.ID }) (*usuarioResolver, error) {
	id, err := parseID(args.IDUsuario)
	if err != nil {
		return nil, err
	}
	v, err := r.svc.User(ctx, id)
	return r.userView(v, err)
}

func (r *Resolver) UsuarioPorUsername(ctx context.Context, args struct{ Username string }) (*usuarioResolver, error) {
	return r.userView(r.svc.UserByUsername(ctx, args.Username))
}

func (r *Resolver) Rol(ctx context.Context, args struct{ IDRol gql.ID }) (*rolResolver, error) {
	id, err := parseID(args.IDRol)
	if err != nil {
		return nil, err
	}
	v, err := r.svc.Role(ctx, id)
	return r.roleView(v, err)
}

func (r *Resolver) RolPorNombre(ctx context.Context, args struct{ Nombre string }) (*rolResolver, error) {
	return r.roleView(r.svc.RoleByName(ctx, args.Nombre))
}

func (r *Resolver) UsuariosConRol(ctx context.Context, args struct{ IDRol gql.ID }) (*[]*usuarioResolver, error) {
	id, err := parseID(args.IDRol)
	if err != nil {
		return nil, err
	}
	return r.userViews(r.svc.UsersWithRole(ctx, id))
}

func (r *Resolver) UsuariosConRolNombre(ctx context.Context, args struct{ NombreRol string }) (*[]*usuarioResolver, error) {
	return r.userViews(r.svc.UsersWithRoleName(ctx, args.NombreRol))
}

func (r *Resolver) EstadisticasUsuarios(ctx context.Context) (*[]*usuarioResolver, error) {
	return r.userViews(r.svc.UserStats(ctx))
}

func (r *Resolver) LogsPorUsuario(ctx context.Context, args struct{ IDUsuario gql.ID }) (*[]*logResolver, error) {
	id, err := parseID(args.IDUsuario)
	if err != nil {
		return nil, err
	}
	return r.logs(ctx, domain.AuditFilter{UserID: &id})
}

func (r *Resolver) LogsPorTipoEvento(ctx context.Context, args struct{ TipoEvento string }) (*[]*logResolver, error) {
	return r.logs(ctx, domain.AuditFilter{EventType: &args.TipoEvento})
}

func (r *Resolver) LogsPorModulo(ctx context.Context, args struct{ Modulo string }) (*[]*logResolver, error) {
	return r.logs(ctx, domain.AuditFilter{Module: &args.Modulo})
}

func (r *Resolver) LogsPorEntidad(ctx context.Context, args struct{ Entidad string }) (*[]*logResolver, error) {
	return r.logs(ctx, domain.AuditFilter{Entity: &args.Entidad})
}

func (r *Resolver) LogsPorNivel(ctx context.Context, args struct{ Nivel string }) (*[]*logResolver, error) {
	return r.logs(ctx, domain.AuditFilter{Level: &args.Nivel})
}

func (r *Resolver) LogsPorRangoFechas(ctx context.Context, args struct {
	FechaInicio string
	FechaFin    string
}) (*[]*logResolver, error) {
	from, err := parseTime(args.FechaInicio)
	if err != nil {
		return nil, err
	}
	to, err := parseTime(args.FechaFin)
	if err != nil {
		return nil, err
	}
	return r.logs(ctx, domain.AuditFilter{From: &from, To: &to})
}

type filterArgs struct {
	IDUsuario   *gql.ID
	TipoEvento  *string
	Modulo      *string
	Entidad     *string
	Nivel       *string
	FechaInicio *string
	FechaFin    *string
}

func (r *Resolver) LogsConFiltros(ctx context.Context, args filterArgs) (*[]*logResolver, error) {
	f := domain.AuditFilter{
		EventType: args.TipoEvento,
		Module:    args.Modulo,
		Entity:    args.Entidad,
		Level:     args.Nivel,
	}
	if args.IDUsuario != nil {
		id, err := parseID(*args.IDUsuario)
		if err != nil {
			return nil, err
		}
		f.UserID = &id
	}
	if args.FechaInicio != nil {
		t, err := parseTime(*args.FechaInicio)
		if err != nil {
			return nil, err
		}
		f.From = &t
	}
	if args.FechaFin != nil {
		t, err := parseTime(*args.FechaFin)
		if err != nil {
			return nil, err
		}
		f.To = &t
	}
	return r.logs(ctx, f)
}

func (r *Resolver) userView(v *audit.UserView, err error) (*usuarioResolver, error) {
	if err != nil || v == nil {
		return nil, err
	}
	return &usuarioResolver{root: r, u: v.User, roles: v.Roles, logs: v.Logs, loaded: true}, nil
}

func (r *Resolver) roleView(v *audit.RoleView, err error) (*rolResolver, error) {
	if err != nil || v == nil {
		return nil, err
	}
	return &rolResolver{root: r, r: v.Role, users: v.Users, loaded: true}, nil
}

func (r *Resolver) userViews(vs []audit.UserView, err error) (*[]*usuarioResolver, error) {
	if err != nil {
		return nil, err
	}
	out := make([]*usuarioResolver, len(vs))
	for i := range vs {
		out[i] = &usuarioResolver{root: r, u: vs[i].User, roles: vs[i].Roles, logs: vs[i].Logs, loaded: true}
	}
	return &out, nil
}

func (r *Resolver) logs(ctx context.Context, f domain.AuditFilter) (*[]*logResolver, error) {
	entries, err := r.svc.Logs(ctx, f)
	if err != nil {
		return nil, err
	}
	return r.logList(entries), nil
}

func (r *Resolver) logList(entries []domain.AuditLogEntry) *[]*logResolver {
	actors := newActorBatch(r.svc, entries)
	out := make([]*logResolver, len(entries))
	for i := range entries {
		out[i] = &logResolver{root: r, e: entries[i], actors: actors}
	}
	return &out
}

// actorBatch 同一列表里的日志共享一次按 id 批量查用户，首次访问 usuario 时才查
type actorBatch struct {
	svc   *audit.Service
	ids   []int64
	once  sync.Once
	users map[int64]domain.User
	err   error
}

func newActorBatch(svc *audit.Service, entries []domain.AuditLogEntry) *actorBatch {
	b := &actorBatch{svc: svc}
	seen := map[int64]bool{}
	for _, e := range entries {
		if e.UserID != nil && !seen[*e.UserID] {
			seen[*e.UserID] = true
			b.ids = append(b.ids, *e.UserID)
		}
	}
	return b
}

func (b *actorBatch) get(ctx context.Context, id int64) (*domain.User, error) {
	b.once.Do(func() { b.users, b.err = b.svc.UsersByIDs(ctx, b.ids) })
	if b.err != nil {
		return nil, b.err
	}
	u, ok := b.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type usuarioResolver struct {
	root   *Resolver
	u      domain.User
	roles  []domain.Role
	logs   []domain.AuditLogEntry
	loaded bool // false 时 roles/logs 为 null（例如日志上的操作者）
}

func (u *usuarioResolver) IDUsuario() gql.ID          { return toID(u.u.ID) }
func (u *usuarioResolver) Username() string           { return u.u.Username }
func (u *usuarioResolver) Email() string              { return u.u.Email }
func (u *usuarioResolver) Nombre() *string            { return optString(u.u.FirstName) }
func (u *usuarioResolver) Apellido() *string          { return optString(u.u.LastName) }
func (u *usuarioResolver) FechaCreacion() *string     { return optTime(&u.u.CreatedAt) }
func (u *usuarioResolver) FechaModificacion() *string { return optTime(&u.u.UpdatedAt) }
func (u *usuarioResolver) UltimoLogin() *string       { return optTime(u.u.LastLogin) }
func (u *usuarioResolver) Activo() bool               { return u.u.Active }

func (u *usuarioResolver) Roles() *[]*rolResolver {
	if !u.loaded {
		return nil
	}
	out := make([]*rolResolver, len(u.roles))
	for i := range u.roles {
		out[i] = &rolResolver{root: u.root, r: u.roles[i]}
	}
	return &out
}

func (u *usuarioResolver) Logs() *[]*logResolver {
	if !u.loaded {
		return nil
	}
	return u.root.logList(u.logs)
}

type rolResolver struct {
	root   *Resolver
	r      domain.Role
	users  []domain.User
	loaded bool
}

func (r *rolResolver) IDRol() gql.ID              { return toID(r.r.ID) }
func (r *rolResolver) Nombre() string             { return r.r.Name }
func (r *rolResolver) Descripcion() *string       { return optString(r.r.Description) }
func (r *rolResolver) FechaCreacion() *string     { return optTime(&r.r.CreatedAt) }
func (r *rolResolver) FechaModificacion() *string { return optTime(&r.r.UpdatedAt) }
func (r *rolResolver) Activo() bool               { return r.r.Active }

func (r *rolResolver) Usuarios() *[]*usuarioResolver {
	if !r.loaded {
		return nil
	}
	out := make([]*usuarioResolver, len(r.users))
	for i := range r.users {
		out[i] = &usuarioResolver{root: r.root, u: r.users[i]}
	}
	return &out
}

type logResolver struct {
	root   *Resolver
	e      domain.AuditLogEntry
	actors *actorBatch
}

func (l *logResolver) IDLog() gql.ID       { return toID(l.e.ID) }
func (l *logResolver) FechaEvento() string { return fmtTime(l.e.Timestamp) }
func (l *logResolver) Username() *string   { return optString(l.e.Username) }
func (l *logResolver) TipoEvento() string  { return l.e.EventType }
func (l *logResolver) Modulo() string      { return l.e.Module }
func (l *logResolver) Accion() string      { return l.e.Action }
func (l *logResolver) Entidad() *string    { return l.e.Entity }
func (l *logResolver) IPOrigen() *string   { return l.e.OriginIP }
func (l *logResolver) UserAgent() *string  { return l.e.UserAgent }
func (l *logResolver) Nivel() *string      { return optString(l.e.Level) }

func (l *logResolver) IDUsuario() *gql.ID {
	if l.e.UserID == nil {
		return nil
	}
	id := toID(*l.e.UserID)
	return &id
}

func (l *logResolver) IDAfectado() *gql.ID {
	if l.e.AffectedID == nil {
		return nil
	}
	id := toID(*l.e.AffectedID)
	return &id
}

func (l *logResolver) DatosPrevios() *string {
	if len(l.e.Previous) == 0 {
		return nil
	}
	s := string(l.e.Previous)
	return &s
}

func (l *logResolver) DatosNuevos() *string {
	if len(l.e.Current) == 0 {
		return nil
	}
	s := string(l.e.Current)
	return &s
}

// Usuario 按需加载操作者
func (l *logResolver) Usuario(ctx context.Context) (*usuarioResolver, error) {
	if l.e.UserID == nil {
		return nil, nil
	}
	u, err := l.actors.get(ctx, *l.e.UserID)
	if err != nil || u == nil {
		return nil, err
	}
	return &usuarioResolver{root: l.root, u: *u}, nil
}
