package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"sum-admin/internal/domain"
)

type RoleRepo struct{ db *gorm.DB }

func NewRoleRepo(db *gorm.DB) *RoleRepo { return &RoleRepo{db: db} }

func (r *RoleRepo) Create(ctx context.Context, role *domain.Role) error {
	role.Active = true
	return translate(r.db.WithContext(ctx).Create(role).Error, "rol")
}

func (r *RoleRepo) FindByID(ctx context.Context, id int64) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.WithContext(ctx).First(&role, "id_rol = ?", id).Error; err != nil {
		return nil, translate(err, "rol")
	}
	return &role, nil
}

func (r *RoleRepo) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.WithContext(ctx).First(&role, "nombre = ?", name).Error; err != nil {
		return nil, translate(err, "rol")
	}
	return &role, nil
}

func (r *RoleRepo) List(ctx context.Context, includeInactive bool) ([]domain.Role, error) {
	roles := []domain.Role{}
	q := r.db.WithContext(ctx).Model(&domain.Role{})
	if !includeInactive {
		q = q.Where("activo = ?", true)
	}
	err := q.Order("id_rol").Find(&roles).Error
	return roles, translate(err, "roles")
}

func (r *RoleRepo) Update(ctx context.Context, role *domain.Role) error {
	res := r.db.WithContext(ctx).Model(&domain.Role{}).
		Where("id_rol = ?", role.ID).
		Updates(map[string]any{
			"nombre":             role.Name,
			"descripcion":        role.Description,
			"fecha_modificacion": time.Now(),
		})
	return translate(res.Error, "rol")
}

func (r *RoleRepo) Deactivate(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&domain.Role{}).
		Where("id_rol = ?", id).
		Updates(map[string]any{"activo": false, "fecha_modificacion": time.Now()})
	return translate(res.Error, "rol")
}
