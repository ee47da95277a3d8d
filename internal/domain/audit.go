package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

const (
	SystemUsername = "sistema"
	LevelInfo      = "INFO"

	ModuleUsers = "USUARIOS"
	ModuleRoles = "ROLES"

	EntityUsers     = "SUM_USUARIOS"
	EntityRoles     = "SUM_ROLES"
	EntityUserRoles = "SUM_USUARIO_ROL"
)

// AuditLogEntry 只追加，不提供更新/删除
type AuditLogEntry struct {
	ID         int64          `gorm:"column:id_log;primaryKey;autoIncrement"`
	Timestamp  time.Time      `gorm:"column:fecha_evento;not null;index"`
	UserID     *int64         `gorm:"column:id_usuario;index"`
	Username   string         `gorm:"column:username;size:50"`
	EventType  string         `gorm:"column:tipo_evento;size:50;not null;index"`
	Module     string         `gorm:"column:modulo;size:50;not null;index"`
	Action     string         `gorm:"column:accion;size:100;not null"`
	Entity     *string        `gorm:"column:entidad;size:50"`
	AffectedID *int64         `gorm:"column:id_afectado"`
	Previous   datatypes.JSON `gorm:"column:datos_previos"`
	Current    datatypes.JSON `gorm:"column:datos_nuevos"`
	OriginIP   *string        `gorm:"column:ip_origen;size:45"`
	UserAgent  *string        `gorm:"column:user_agent;size:255"`
	Level      string         `gorm:"column:nivel;size:10;not null"`
}

func (AuditLogEntry) TableName() string { return "sum_log_eventos" }

// AuditFilter 所有条件可选，按 AND 组合
type AuditFilter struct {
	UserID    *int64
	EventType *string
	Module    *string
	Entity    *string
	Level     *string
	From      *time.Time
	To        *time.Time
}

type AuditRepository interface {
	Append(ctx context.Context, e *AuditLogEntry) error
	Find(ctx context.Context, f AuditFilter) ([]AuditLogEntry, error)
	ByUsers(ctx context.Context, userIDs []int64) (map[int64][]AuditLogEntry, error)
}
