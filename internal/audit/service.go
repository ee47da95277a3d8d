package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sum-admin/internal/core/cache"
	"sum-admin/internal/domain"
)

// UserView 用户 + 角色 + 审计日志
type UserView struct {
	domain.User
	Roles []domain.Role
	Logs  []domain.AuditLogEntry
}

// RoleView 角色 + 持有者
type RoleView struct {
	domain.Role
	Users []domain.User
}

type Service struct {
	users domain.UserRepository
	roles domain.RoleRepository
	links domain.AssignmentRepository
	logs  domain.AuditRepository
	// Cache 为 nil 时不缓存
	rolesByName cache.JSON[domain.Role]
	log         *zap.Logger
}

type Deps struct {
	Users    domain.UserRepository
	Roles    domain.RoleRepository
	Links    domain.AssignmentRepository
	Logs     domain.AuditRepository
	Cache    *cache.Cache
	CacheTTL time.Duration
}

func NewService(d Deps, l *zap.Logger) *Service {
	if d.CacheTTL <= 0 {
		d.CacheTTL = time.Minute
	}
	return &Service{
		users: d.Users, roles: d.Roles, links: d.Links, logs: d.Logs,
		rolesByName: cache.JSON[domain.Role]{C: d.Cache, TTL: d.CacheTTL, Prefix: "rol:nombre:"},
		log:         l.Named("audit"),
	}
}

// notFoundAsNil 查询接口里“不存在”返回 null 而不是错误
func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if domain.IsKind(err, domain.KindNotFound) {
		return nil, nil
	}
	return v, err
}

func (s *Service) User(ctx context.Context, id int64) (*UserView, error) {
	u, err := notFoundAsNil(s.users.FindByID(ctx, id))
	if err != nil || u == nil {
		return nil, err
	}
	return s.one(ctx, *u)
}

func (s *Service) UserByUsername(ctx context.Context, username string) (*UserView, error) {
	u, err := notFoundAsNil(s.users.FindByUsername(ctx, username))
	if err != nil || u == nil {
		return nil, err
	}
	return s.one(ctx, *u)
}

// UsersByIDs 日志条目上的操作者，一次查询，不加载关联
func (s *Service) UsersByIDs(ctx context.Context, ids []int64) (map[int64]domain.User, error) {
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]domain.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *Service) Role(ctx context.Context, id int64) (*RoleView, error) {
	r, err := notFoundAsNil(s.roles.FindByID(ctx, id))
	if err != nil || r == nil {
		return nil, err
	}
	return s.withHolders(ctx, *r)
}

func (s *Service) RoleByName(ctx context.Context, name string) (*RoleView, error) {
	r, err := s.cachedRoleByName(ctx, name)
	if err != nil || r == nil {
		return nil, err
	}
	return s.withHolders(ctx, *r)
}

func (s *Service) UsersWithRole(ctx context.Context, roleID int64) ([]UserView, error) {
	holders, err := s.links.HoldersByRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return s.batch(ctx, holders)
}

func (s *Service) UsersWithRoleName(ctx context.Context, name string) ([]UserView, error) {
	r, err := s.cachedRoleByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return []UserView{}, nil
	}
	return s.UsersWithRole(ctx, r.ID)
}

func (s *Service) Logs(ctx context.Context, f domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	return s.logs.Find(ctx, f)
}

// UserStats 所有用户（含停用）及其角色和日志
func (s *Service) UserStats(ctx context.Context) ([]UserView, error) {
	all, err := s.users.List(ctx, true)
	if err != nil {
		return nil, err
	}
	s.log.Debug("user stats", zap.Int("users", len(all)))
	return s.batch(ctx, all)
}

// ForgetRoles 角色增删改后让按名缓存失效
func (s *Service) ForgetRoles(ctx context.Context, names ...string) error {
	return s.rolesByName.Forget(ctx, names...)
}

func (s *Service) cachedRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	return s.rolesByName.Get(ctx, name, func(ctx context.Context) (*domain.Role, error) {
		return notFoundAsNil(s.roles.FindByName(ctx, name))
	})
}

func (s *Service) withHolders(ctx context.Context, r domain.Role) (*RoleView, error) {
	users, err := s.links.HoldersByRole(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return &RoleView{Role: r, Users: users}, nil
}

func (s *Service) one(ctx context.Context, u domain.User) (*UserView, error) {
	views, err := s.batch(ctx, []domain.User{u})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// batch 两次批量查询加载所有用户的角色与日志
func (s *Service) batch(ctx context.Context, users []domain.User) ([]UserView, error) {
	out := make([]UserView, 0, len(users))
	if len(users) == 0 {
		return out, nil
	}
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	roles, err := s.links.RolesByUser(ctx, ids)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.ByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		v := UserView{User: u, Roles: roles[u.ID], Logs: logs[u.ID]}
		if v.Roles == nil {
			v.Roles = []domain.Role{}
		}
		if v.Logs == nil {
			v.Logs = []domain.AuditLogEntry{}
		}
		out = append(out, v)
	}
	return out, nil
}
