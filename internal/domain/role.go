package domain

import (
	"context"
	"time"
)

type Role struct {
	ID          int64     `gorm:"column:id_rol;primaryKey;autoIncrement" json:"idRol"`
	Name        string    `gorm:"column:nombre;size:50;not null;uniqueIndex" json:"nombre"`
	Description string    `gorm:"column:descripcion;size:255" json:"descripcion"`
	CreatedAt   time.Time `gorm:"column:fecha_creacion;autoCreateTime" json:"fechaCreacion"`
	UpdatedAt   time.Time `gorm:"column:fecha_modificacion;autoUpdateTime" json:"fechaModificacion"`
	Active      bool      `gorm:"column:activo;not null;default:true" json:"activo"`
}

func (Role) TableName() string { return "sum_roles" }

type RolePatch struct {
	Name        *string `json:"nombre"`
	Description *string `json:"descripcion"`
}

func (p RolePatch) Empty() bool { return p.Name == nil && p.Description == nil }

type RoleRepository interface {
	Create(ctx context.Context, r *Role) error
	FindByID(ctx context.Context, id int64) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context, includeInactive bool) ([]Role, error)
	Update(ctx context.Context, r *Role) error
	Deactivate(ctx context.Context, id int64) error
}

// UserRole 用户-角色关联；(id_usuario, id_rol) 联合主键保证不重复分配
type UserRole struct {
	UserID     int64     `gorm:"column:id_usuario;primaryKey;autoIncrement:false"`
	RoleID     int64     `gorm:"column:id_rol;primaryKey;autoIncrement:false;index"`
	AssignedAt time.Time `gorm:"column:fecha_asignacion;autoCreateTime"`
}

func (UserRole) TableName() string { return "sum_usuario_rol" }

type AssignmentRepository interface {
	// Assign 返回 created=false 表示关联已存在（未写入）
	Assign(ctx context.Context, userID, roleID int64) (created bool, err error)
	RoleIDs(ctx context.Context, userID int64) ([]int64, error)
	HolderIDs(ctx context.Context, roleID int64) ([]int64, error)
	// RemoveRoleFrom 只删给定用户的关联，期间新分配的持有者不受影响
	RemoveRoleFrom(ctx context.Context, roleID int64, userIDs []int64) (int64, error)
	RolesByUser(ctx context.Context, userIDs []int64) (map[int64][]Role, error)
	HoldersByRole(ctx context.Context, roleID int64) ([]User, error)
}
