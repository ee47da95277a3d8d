package consumer

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"sum-admin/internal/domain"
	"sum-admin/internal/event"
)

const (
	sourceAutoAssign = "/usuarios/roles/asignacion_automatica"
	sourceAutoRemove = "/usuarios/roles/eliminacion_automatica"
)

type AutomationConfig struct {
	DefaultRoleID   int64
	DefaultRoleName string
}

// RoleAutomation 新用户分配默认角色；角色删除时级联移除所有持有者。
// 任何错误都只记日志，Handle 始终返回 nil。
type RoleAutomation struct {
	links    domain.AssignmentRepository
	pub      event.Publisher
	cfg      AutomationConfig
	log      *zap.Logger
	handlers map[event.Type]func(context.Context, event.Payload)
}

func NewRoleAutomation(links domain.AssignmentRepository, pub event.Publisher, cfg AutomationConfig, l *zap.Logger) *RoleAutomation {
	if cfg.DefaultRoleID == 0 {
		cfg.DefaultRoleID = 2
	}
	if cfg.DefaultRoleName == "" {
		cfg.DefaultRoleName = "USER"
	}
	a := &RoleAutomation{links: links, pub: pub, cfg: cfg, log: l.Named("role_automation")}
	a.handlers = map[event.Type]func(context.Context, event.Payload){
		event.UserCreated: a.onUserCreated,
		event.RoleDeleted: a.onRoleDeleted,
	}
	return a
}

func (a *RoleAutomation) Name() string         { return "role_automation" }
func (a *RoleAutomation) Topics() []event.Type { return []event.Type{event.UserCreated, event.RoleDeleted} }

func (a *RoleAutomation) Handle(ctx context.Context, e event.Envelope) error {
	h, ok := a.handlers[e.EventType]
	if !ok {
		a.log.Debug("event ignored", zap.String("event_type", string(e.EventType)))
		return nil
	}
	p, err := event.ParsePayload(e.Data)
	if err != nil {
		a.log.Error("bad payload", zap.String("event_type", string(e.EventType)), zap.Error(err))
		return nil
	}
	h(ctx, p)
	return nil
}

func (a *RoleAutomation) onUserCreated(ctx context.Context, p event.Payload) {
	userID, err := p.Int64("idUsuario")
	if err != nil {
		a.log.Warn("user_created without usable idUsuario; skipped", zap.Error(err))
		return
	}
	username := p.StringOr("username", unknown)
	roleID := a.cfg.DefaultRoleID
	log := a.log.With(zap.Int64("id_usuario", userID), zap.Int64("id_rol", roleID))

	current, err := a.links.RoleIDs(ctx, userID)
	if err != nil {
		log.Error("load current roles failed", zap.Error(err))
		return
	}
	if slices.Contains(current, roleID) {
		log.Info("default role already held")
		return
	}
	created, err := a.links.Assign(ctx, userID, roleID)
	if err != nil {
		log.Error("assign default role failed", zap.Error(err))
		return
	}
	if !created {
		log.Info("default role assigned concurrently")
		return
	}

	a.publish(ctx, event.RoleAssignedAuto, sourceAutoAssign, map[string]any{
		"idUsuario":            userID,
		"idRol":                roleID,
		"rolNombre":            a.cfg.DefaultRoleName,
		"username":             username,
		"asignacionAutomatica": true,
	})
	log.Info("default role assigned", zap.String("username", username))
}

func (a *RoleAutomation) onRoleDeleted(ctx context.Context, p event.Payload) {
	roleID, err := p.Int64("idRol")
	if err != nil {
		a.log.Warn("role_deleted without usable idRol; skipped", zap.Error(err))
		return
	}
	roleName := p.StringOr("nombre", unknown)
	log := a.log.With(zap.Int64("id_rol", roleID), zap.String("rol", roleName))

	holders, err := a.links.HolderIDs(ctx, roleID)
	if err != nil {
		log.Error("load role holders failed", zap.Error(err))
		return
	}
	if len(holders) == 0 {
		log.Info("no holders; nothing to remove")
		return
	}
	removed, err := a.links.RemoveRoleFrom(ctx, roleID, holders)
	if err != nil {
		log.Error("bulk remove failed", zap.Error(err))
		return
	}

	for _, uid := range holders {
		a.publish(ctx, event.RoleRemovedAuto, sourceAutoRemove, map[string]any{
			"idUsuario":             uid,
			"idRol":                 roleID,
			"rolNombre":             roleName,
			"eliminacionAutomatica": true,
		})
	}
	log.Info("role removed from holders", zap.Int("holders", len(holders)), zap.Int64("rows", removed))
}

func (a *RoleAutomation) publish(ctx context.Context, t event.Type, source string, data map[string]any) {
	e, err := event.New(t, source, data)
	if err == nil {
		err = a.pub.Publish(ctx, e)
	}
	if err != nil {
		a.log.Warn("publish secondary event failed",
			zap.String("event_type", string(t)),
			zap.Error(domain.EventPublish(string(t), err)))
	}
}
