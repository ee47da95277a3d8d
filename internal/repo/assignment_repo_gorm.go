package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sum-admin/internal/domain"
)

type AssignmentRepo struct{ db *gorm.DB }

func NewAssignmentRepo(db *gorm.DB) *AssignmentRepo { return &AssignmentRepo{db: db} }

// Assign 依赖 (id_usuario, id_rol) 联合主键，重复分配不写入也不报错
func (r *AssignmentRepo) Assign(ctx context.Context, userID, roleID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.UserRole{UserID: userID, RoleID: roleID})
	if res.Error != nil {
		return false, translate(res.Error, "asignación")
	}
	return res.RowsAffected > 0, nil
}

func (r *AssignmentRepo) RoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.WithContext(ctx).Model(&domain.UserRole{}).
		Where("id_usuario = ?", userID).
		Order("id_rol").
		Pluck("id_rol", &ids).Error
	return ids, translate(err, "roles del usuario")
}

func (r *AssignmentRepo) HolderIDs(ctx context.Context, roleID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.WithContext(ctx).Model(&domain.UserRole{}).
		Where("id_rol = ?", roleID).
		Order("id_usuario").
		Pluck("id_usuario", &ids).Error
	return ids, translate(err, "usuarios del rol")
}

// RemoveRoleFrom 一条 DELETE 清掉 userIDs 持有的该角色
func (r *AssignmentRepo) RemoveRoleFrom(ctx context.Context, roleID int64, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("id_rol = ? AND id_usuario IN ?", roleID, userIDs).
		Delete(&domain.UserRole{})
	if res.Error != nil {
		return 0, translate(res.Error, "asignaciones")
	}
	return res.RowsAffected, nil
}

// RolesByUser 两次查询批量装配，避免逐个用户查角色
func (r *AssignmentRepo) RolesByUser(ctx context.Context, userIDs []int64) (map[int64][]domain.Role, error) {
	out := make(map[int64][]domain.Role, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var links []domain.UserRole
	if err := r.db.WithContext(ctx).
		Where("id_usuario IN ?", userIDs).
		Order("id_usuario, id_rol").
		Find(&links).Error; err != nil {
		return nil, translate(err, "asignaciones")
	}
	if len(links) == 0 {
		return out, nil
	}

	roleIDs := make([]int64, 0, len(links))
	seen := map[int64]struct{}{}
	for _, l := range links {
		if _, ok := seen[l.RoleID]; !ok {
			seen[l.RoleID] = struct{}{}
			roleIDs = append(roleIDs, l.RoleID)
		}
	}
	var roles []domain.Role
	if err := r.db.WithContext(ctx).Where("id_rol IN ?", roleIDs).Find(&roles).Error; err != nil {
		return nil, translate(err, "roles")
	}
	byID := make(map[int64]domain.Role, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
	}
	for _, l := range links {
		if role, ok := byID[l.RoleID]; ok {
			out[l.UserID] = append(out[l.UserID], role)
		}
	}
	return out, nil
}

func (r *AssignmentRepo) HoldersByRole(ctx context.Context, roleID int64) ([]domain.User, error) {
	users := []domain.User{}
	err := r.db.WithContext(ctx).
		Joins("JOIN sum_usuario_rol ur ON ur.id_usuario = sum_usuarios.id_usuario").
		Where("ur.id_rol = ?", roleID).
		Order("sum_usuarios.id_usuario").
		Find(&users).Error
	return users, translate(err, "usuarios del rol")
}
