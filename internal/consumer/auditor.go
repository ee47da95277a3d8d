package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"sum-admin/internal/domain"
	"sum-admin/internal/event"
)

type snapshotRule int

const (
	captureWhole   snapshotRule = iota // 新值 = 整个 data
	capturePrevNew                     // datosPrevios + datosNuevos
	capturePrev                        // 仅 datosPrevios
	captureRoleID                      // 新值 = {"idRol": X}
)

type auditRule struct {
	module   string
	action   string
	entity   string
	affected string // 受影响实体 id 所在字段
	capture  snapshotRule
	// 没有 actor 时，角色类事件 data 里的 idUsuario 视为操作者
	actorInData bool
}

var auditRules = map[event.Type]auditRule{
	event.UserCreated:  {domain.ModuleUsers, "Creación de usuario", domain.EntityUsers, "idUsuario", captureWhole, false},
	event.UserUpdated:  {domain.ModuleUsers, "Actualización de usuario", domain.EntityUsers, "idUsuario", capturePrevNew, false},
	event.UserDeleted:  {domain.ModuleUsers, "Eliminación de usuario", domain.EntityUsers, "idUsuario", capturePrev, false},
	event.RoleCreated:  {domain.ModuleRoles, "Creación de rol", domain.EntityRoles, "idRol", captureWhole, true},
	event.RoleUpdated:  {domain.ModuleRoles, "Actualización de rol", domain.EntityRoles, "idRol", capturePrevNew, true},
	event.RoleDeleted:  {domain.ModuleRoles, "Eliminación de rol", domain.EntityRoles, "idRol", capturePrev, true},
	event.RoleAssigned: {domain.ModuleRoles, "Asignación de rol a usuario", domain.EntityUserRoles, "idUsuario", captureRoleID, true},
}

// Auditor 每个已识别事件写一行 sum_log_eventos；未识别类型不写。
type Auditor struct {
	store domain.AuditRepository
	log   *zap.Logger
}

func NewAuditor(store domain.AuditRepository, l *zap.Logger) *Auditor {
	return &Auditor{store: store, log: l.Named("auditor")}
}

func (a *Auditor) Name() string { return "auditor" }

// Topics 也订阅自动化产生的二级事件，按未识别类型处理
func (a *Auditor) Topics() []event.Type { return event.All }

func (a *Auditor) Handle(ctx context.Context, e event.Envelope) error {
	rule, ok := auditRules[e.EventType]
	if !ok {
		a.log.Warn("unrecognized event type; no audit row", zap.String("event_type", string(e.EventType)))
		return nil
	}
	p, err := event.ParsePayload(e.Data)
	if err != nil {
		return domain.Validation(fmt.Sprintf("%s payload: %v", e.EventType, err))
	}

	entry := rule.entry(e, p)
	if err := a.store.Append(ctx, entry); err != nil {
		return err
	}
	a.log.Info("audit row written",
		zap.String("event_type", string(e.EventType)),
		zap.Int64("id_log", entry.ID))
	return nil
}

func (r auditRule) entry(e event.Envelope, p event.Payload) *domain.AuditLogEntry {
	entity := r.entity
	entry := &domain.AuditLogEntry{
		Timestamp:  e.EventTime,
		Username:   domain.SystemUsername,
		EventType:  string(e.EventType),
		Module:     r.module,
		Action:     r.action,
		Entity:     &entity,
		AffectedID: p.OptInt64(r.affected),
		Level:      domain.LevelInfo,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	// id_usuario 与 username 必须来自同一来源：有身份的 actor，否则退回 data
	a := e.Actor
	if a != nil && (a.UserID != nil || a.Username != "") {
		entry.UserID = a.UserID
		if a.Username != "" {
			entry.Username = a.Username
		}
	} else {
		if r.actorInData {
			entry.UserID = p.OptInt64("idUsuario")
		}
		if name, ok := p.String("username"); ok && name != "" {
			entry.Username = name
		}
	}
	if a != nil && a.IP != "" {
		ip := a.IP
		entry.OriginIP = &ip
	}

	switch r.capture {
	case captureWhole:
		entry.Current = datatypes.JSON(e.Data)
	case capturePrevNew:
		entry.Previous = rawJSON(p, "datosPrevios")
		entry.Current = rawJSON(p, "datosNuevos")
	case capturePrev:
		entry.Previous = rawJSON(p, "datosPrevios")
	case captureRoleID:
		if id := p.OptInt64("idRol"); id != nil {
			b, _ := json.Marshal(map[string]int64{"idRol": *id})
			entry.Current = b
		}
	}
	return entry
}

func rawJSON(p event.Payload, field string) datatypes.JSON {
	v, ok := p.Raw(field)
	if !ok {
		return nil
	}
	return datatypes.JSON(v)
}
