package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"sum-admin/internal/core/auth"
	"sum-admin/internal/domain"
	"sum-admin/internal/event"
	"sum-admin/pkg/utils"
)

type CreateUserInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"usuario"`
}

type UserService struct {
	users domain.UserRepository
	roles domain.RoleRepository
	links domain.AssignmentRepository
	jwt   *auth.JWTer
	emitter
}

func NewUserService(users domain.UserRepository, roles domain.RoleRepository, links domain.AssignmentRepository,
	pub event.Publisher, jwter *auth.JWTer, l *zap.Logger) *UserService {
	if pub == nil {
		panic(errNilPublisher)
	}
	return &UserService{
		users: users, roles: roles, links: links, jwt: jwter,
		emitter: emitter{pub: pub, log: l.Named("user_service")},
	}
}

func userSnapshot(u *domain.User) map[string]any {
	return map[string]any{
		"username": u.Username,
		"email":    u.Email,
		"nombre":   u.FirstName,
		"apellido": u.LastName,
		"activo":   u.Active,
	}
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	username, ok1 := required(in.Username)
	email, ok2 := required(in.Email)
	if !ok1 || !ok2 || strings.TrimSpace(in.Password) == "" {
		return nil, domain.Validation("Username, email y password son requeridos")
	}
	if !strings.Contains(email, "@") {
		return nil, domain.Validation("Email inválido")
	}
	if err := s.checkUnique(ctx, 0, &username, &email); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, domain.Store("hash password", err)
	}
	u := &domain.User{
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.emit(ctx, event.UserCreated, "/usuarios/created", map[string]any{
		"idUsuario": u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"nombre":    u.FirstName,
		"apellido":  u.LastName,
	})
	return u, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, p domain.UserPatch) (*domain.User, error) {
	if p.Empty() {
		return nil, domain.Validation("No hay campos para actualizar")
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := userSnapshot(u)

	if p.Username != nil {
		v, ok := required(*p.Username)
		if !ok {
			return nil, domain.Validation("Username no puede estar vacío")
		}
		p.Username = &v
	}
	if p.Email != nil {
		v, ok := required(*p.Email)
		if !ok || !strings.Contains(v, "@") {
			return nil, domain.Validation("Email inválido")
		}
		p.Email = &v
	}
	if err := s.checkUnique(ctx, id, p.Username, p.Email); err != nil {
		return nil, err
	}

	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		u.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Password != nil {
		if strings.TrimSpace(*p.Password) == "" {
			return nil, domain.Validation("Password no puede estar vacío")
		}
		hash, err := utils.HashPassword(*p.Password)
		if err != nil {
			return nil, domain.Store("hash password", err)
		}
		u.PasswordHash = hash
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}

	s.emit(ctx, event.UserUpdated, "/usuarios/updated", map[string]any{
		"idUsuario":    u.ID,
		"username":     u.Username,
		"datosPrevios": prev,
		"datosNuevos":  userSnapshot(u),
	})
	return u, nil
}

// DeleteUser 软删；重复删除已知 id 也成功
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Deactivate(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, event.UserDeleted, "/usuarios/deleted", map[string]any{
		"idUsuario":    u.ID,
		"username":     u.Username,
		"datosPrevios": userSnapshot(u),
	})
	return nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx, false)
}

// AssignRole 关联已存在时不写入也不发事件；返回用户当前全部角色 id
func (s *UserService) AssignRole(ctx context.Context, userID, roleID int64) ([]int64, error) {
	if roleID <= 0 {
		return nil, domain.Validation("idRol es requerido")
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	r, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	created, err := s.links.Assign(ctx, userID, roleID)
	if err != nil {
		return nil, err
	}
	if created {
		s.emit(ctx, event.RoleAssigned, "/usuarios/roles/assigned", map[string]any{
			"idUsuario": u.ID,
			"idRol":     r.ID,
			"username":  u.Username,
			"rolNombre": r.Name,
		})
	}
	return s.links.RoleIDs(ctx, userID)
}

func (s *UserService) UserRoles(ctx context.Context, userID int64) ([]domain.Role, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	byUser, err := s.links.RolesByUser(ctx, []int64{userID})
	if err != nil {
		return nil, err
	}
	roles := byUser[userID]
	if roles == nil {
		roles = []domain.Role{}
	}
	return roles, nil
}

// Login 校验活跃用户的密码，签发 JWT 并记录 ultimo_login
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if s.jwt == nil {
		return nil, domain.Unauthorized("Autenticación no configurada")
	}
	username, ok := required(username)
	if !ok || password == "" {
		return nil, domain.Validation("Username y password son requeridos")
	}
	u, err := s.users.FindByUsername(ctx, username)
	switch {
	case domain.IsKind(err, domain.KindNotFound):
		return nil, domain.Unauthorized("Credenciales inválidas")
	case err != nil:
		return nil, err
	}
	if !u.Active || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.Unauthorized("Credenciales inválidas")
	}

	tok, err := s.jwt.Issue(u.ID, u.Username)
	if err != nil {
		return nil, domain.Store("issue token", err)
	}
	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.log.Warn("stamp last login failed", zap.Int64("id_usuario", u.ID), zap.Error(err))
	} else {
		u.LastLogin = &now
	}
	return &LoginResult{Token: tok, User: u}, nil
}

func (s *UserService) checkUnique(ctx context.Context, self int64, username, email *string) error {
	if username != nil {
		dup, err := taken(func() (int64, error) {
			u, err := s.users.FindByUsername(ctx, *username)
			if err != nil {
				return 0, err
			}
			return u.ID, nil
		}, self)
		if err != nil {
			return err
		}
		if dup {
			return domain.Conflict("El username ya está en uso")
		}
	}
	if email != nil {
		dup, err := taken(func() (int64, error) {
			u, err := s.users.FindByEmail(ctx, *email)
			if err != nil {
				return 0, err
			}
			return u.ID, nil
		}, self)
		if err != nil {
			return err
		}
		if dup {
			return domain.Conflict("El email ya está en uso")
		}
	}
	return nil
}
