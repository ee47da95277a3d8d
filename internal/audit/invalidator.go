package audit

import (
	"context"

	"go.uber.org/zap"

	"sum-admin/internal/event"
)

// RoleCacheInvalidator 订阅角色事件，清掉按名缓存里的旧值与新值
type RoleCacheInvalidator struct {
	svc *Service
	log *zap.Logger
}

func NewRoleCacheInvalidator(svc *Service, l *zap.Logger) *RoleCacheInvalidator {
	return &RoleCacheInvalidator{svc: svc, log: l.Named("role_cache")}
}

func (i *RoleCacheInvalidator) Name() string { return "auditoria_role_cache" }

func (i *RoleCacheInvalidator) Topics() []event.Type {
	return []event.Type{event.RoleCreated, event.RoleUpdated, event.RoleDeleted}
}

// Handle 失败只记日志，缓存最终由 TTL 过期
func (i *RoleCacheInvalidator) Handle(ctx context.Context, e event.Envelope) error {
	p, err := event.ParsePayload(e.Data)
	if err != nil {
		i.log.Warn("unreadable role event", zap.String("event_type", string(e.EventType)), zap.Error(err))
		return nil
	}
	names := roleNames(p)
	if len(names) == 0 {
		return nil
	}
	if err := i.svc.ForgetRoles(ctx, names...); err != nil {
		i.log.Warn("forget cached roles failed", zap.Strings("roles", names), zap.Error(err))
		return nil
	}
	i.log.Debug("role cache invalidated", zap.Strings("roles", names))
	return nil
}

// roleNames nombre 以及快照里的 nombre（改名时旧名也要清）
func roleNames(p event.Payload) []string {
	seen := map[string]bool{}
	var out []string
	add := func(n string, ok bool) {
		if ok && n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	add(p.String("nombre"))
	for _, snap := range []string{"datosPrevios", "datosNuevos"} {
		raw, ok := p.Raw(snap)
		if !ok {
			continue
		}
		if sp, err := event.ParsePayload(raw); err == nil {
			add(sp.String("nombre"))
		}
	}
	return out
}
