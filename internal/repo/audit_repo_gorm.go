package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"sum-admin/internal/domain"
)

type AuditRepo struct{ db *gorm.DB }

func NewAuditRepo(db *gorm.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Append(ctx context.Context, e *domain.AuditLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Level == "" {
		e.Level = domain.LevelInfo
	}
	if e.Username == "" {
		e.Username = domain.SystemUsername
	}
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return domain.Store("insert audit entry", err)
	}
	return nil
}

func (r *AuditRepo) Find(ctx context.Context, f domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	q := r.db.WithContext(ctx).Model(&domain.AuditLogEntry{})
	if f.UserID != nil {
		q = q.Where("id_usuario = ?", *f.UserID)
	}
	if f.EventType != nil {
		q = q.Where("tipo_evento = ?", *f.EventType)
	}
	if f.Module != nil {
		q = q.Where("modulo = ?", *f.Module)
	}
	if f.Entity != nil {
		q = q.Where("entidad = ?", *f.Entity)
	}
	if f.Level != nil {
		q = q.Where("nivel = ?", *f.Level)
	}
	switch {
	case f.From != nil && f.To != nil:
		q = q.Where("fecha_evento BETWEEN ? AND ?", *f.From, *f.To)
	case f.From != nil:
		q = q.Where("fecha_evento >= ?", *f.From)
	case f.To != nil:
		q = q.Where("fecha_evento <= ?", *f.To)
	}

	logs := []domain.AuditLogEntry{}
	if err := q.Order("fecha_evento DESC, id_log DESC").Find(&logs).Error; err != nil {
		return nil, domain.Store("query audit entries", err)
	}
	return logs, nil
}

func (r *AuditRepo) ByUsers(ctx context.Context, userIDs []int64) (map[int64][]domain.AuditLogEntry, error) {
	out := make(map[int64][]domain.AuditLogEntry, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var logs []domain.AuditLogEntry
	if err := r.db.WithContext(ctx).
		Where("id_usuario IN ?", userIDs).
		Order("fecha_evento DESC, id_log DESC").
		Find(&logs).Error; err != nil {
		return nil, domain.Store("query audit entries", err)
	}
	for _, l := range logs {
		out[*l.UserID] = append(out[*l.UserID], l)
	}
	return out, nil
}
