package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"sum-admin/internal/domain"
	"sum-admin/internal/event"
)

type CreateRoleInput struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

type RoleService struct {
	roles domain.RoleRepository
	links domain.AssignmentRepository
	emitter
}

func NewRoleService(roles domain.RoleRepository, links domain.AssignmentRepository, pub event.Publisher, l *zap.Logger) *RoleService {
	if pub == nil {
		panic(errNilPublisher)
	}
	return &RoleService{roles: roles, links: links, emitter: emitter{pub: pub, log: l.Named("role_service")}}
}

func roleSnapshot(r *domain.Role) map[string]any {
	return map[string]any{
		"nombre":      r.Name,
		"descripcion": r.Description,
		"activo":      r.Active,
	}
}

func (s *RoleService) CreateRole(ctx context.Context, in CreateRoleInput) (*domain.Role, error) {
	name, ok := required(in.Name)
	if !ok {
		return nil, domain.Validation("El nombre del rol es requerido")
	}
	if err := s.checkUnique(ctx, 0, name); err != nil {
		return nil, err
	}
	r := &domain.Role{Name: name, Description: strings.TrimSpace(in.Description)}
	if err := s.roles.Create(ctx, r); err != nil {
		return nil, err
	}
	s.emit(ctx, event.RoleCreated, "/roles/created", map[string]any{
		"idRol":         r.ID,
		"nombre":        r.Name,
		"descripcion":   r.Description,
		"fechaCreacion": r.CreatedAt,
	})
	return r, nil
}

func (s *RoleService) UpdateRole(ctx context.Context, id int64, p domain.RolePatch) (*domain.Role, error) {
	if p.Empty() {
		return nil, domain.Validation("No hay campos para actualizar")
	}
	r, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := roleSnapshot(r)

	if p.Name != nil {
		name, ok := required(*p.Name)
		if !ok {
			return nil, domain.Validation("El nombre del rol no puede estar vacío")
		}
		if err := s.checkUnique(ctx, id, name); err != nil {
			return nil, err
		}
		r.Name = name
	}
	if p.Description != nil {
		r.Description = strings.TrimSpace(*p.Description)
	}
	if err := s.roles.Update(ctx, r); err != nil {
		return nil, err
	}
	s.emit(ctx, event.RoleUpdated, "/roles/updated", map[string]any{
		"idRol":        r.ID,
		"nombre":       r.Name,
		"descripcion":  r.Description,
		"datosPrevios": prev,
		"datosNuevos":  roleSnapshot(r),
	})
	return r, nil
}

// DeleteRole 只做软删；持有者的关联由自动化消费者移除
func (s *RoleService) DeleteRole(ctx context.Context, id int64) error {
	r, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.roles.Deactivate(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, event.RoleDeleted, "/roles/deleted", map[string]any{
		"idRol":        r.ID,
		"nombre":       r.Name,
		"datosPrevios": roleSnapshot(r),
	})
	return nil
}

func (s *RoleService) GetRole(ctx context.Context, id int64) (*domain.Role, error) {
	return s.roles.FindByID(ctx, id)
}

func (s *RoleService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx, false)
}

func (s *RoleService) RoleUsers(ctx context.Context, roleID int64) ([]int64, error) {
	if _, err := s.roles.FindByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.links.HolderIDs(ctx, roleID)
}

func (s *RoleService) checkUnique(ctx context.Context, self int64, name string) error {
	dup, err := taken(func() (int64, error) {
		r, err := s.roles.FindByName(ctx, name)
		if err != nil {
			return 0, err
		}
		return r.ID, nil
	}, self)
	if err != nil {
		return err
	}
	if dup {
		return domain.Conflict("Ya existe un rol con ese nombre")
	}
	return nil
}
