package domain

import (
	"context"
	"time"
)

type User struct {
	ID           int64      `gorm:"column:id_usuario;primaryKey;autoIncrement" json:"idUsuario"`
	Username     string     `gorm:"column:username;size:50;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"column:email;size:100;not null;uniqueIndex" json:"email"`
	FirstName    string     `gorm:"column:nombre;size:100" json:"nombre"`
	LastName     string     `gorm:"column:apellido;size:100" json:"apellido"`
	PasswordHash string     `gorm:"column:password_hash;size:100;not null" json:"-"`
	CreatedAt    time.Time  `gorm:"column:fecha_creacion;autoCreateTime" json:"fechaCreacion"`
	UpdatedAt    time.Time  `gorm:"column:fecha_modificacion;autoUpdateTime" json:"fechaModificacion"`
	LastLogin    *time.Time `gorm:"column:ultimo_login" json:"ultimoLogin"`
	Active       bool       `gorm:"column:activo;not null;default:true" json:"activo"`
}

func (User) TableName() string { return "sum_usuarios" }

// UserPatch 局部更新：nil 字段保持不变
type UserPatch struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"nombre"`
	LastName  *string `json:"apellido"`
	Password  *string `json:"password"`
}

func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FirstName == nil && p.LastName == nil && p.Password == nil
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByIDs(ctx context.Context, ids []int64) ([]User, error)
	List(ctx context.Context, includeInactive bool) ([]User, error)
	Update(ctx context.Context, u *User) error
	Deactivate(ctx context.Context, id int64) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}
