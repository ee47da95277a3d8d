package consumer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sum-admin/internal/event"
)

const unknown = "desconocido"

type Audience string

const (
	AudienceUser   Audience = "usuario"
	AudienceAdmins Audience = "administradores"
	AudienceHolder Audience = "usuarios_afectados"
)

type Notice struct {
	EventType event.Type
	Audience  Audience
	Recipient string
	Email     string
	Subject   string
	Body      string
}

// Sender 实际的通知通道（邮件、推送等）
type Sender interface {
	Send(ctx context.Context, n Notice) error
}

// LogSender 只输出结构化日志
type LogSender struct{ Log *zap.Logger }

func (s LogSender) Send(_ context.Context, n Notice) error {
	s.Log.Info("NOTIFICACIÓN: "+n.Subject,
		zap.String("event_type", string(n.EventType)),
		zap.String("audience", string(n.Audience)),
		zap.String("recipient", n.Recipient),
		zap.String("email", n.Email),
		zap.String("body", n.Body))
	return nil
}

type noticeBuilder func(p event.Payload) Notice

var noticeBuilders = map[event.Type]noticeBuilder{
	event.UserCreated: func(p event.Payload) Notice {
		u, mail := p.StringOr("username", unknown), p.StringOr("email", unknown)
		return Notice{Audience: AudienceUser, Recipient: u, Email: mail,
			Subject: fmt.Sprintf("Nuevo usuario creado - %s (%s)", u, mail),
			Body:    "Se enviaría un correo de bienvenida al usuario"}
	},
	event.UserUpdated: func(p event.Payload) Notice {
		u := p.StringOr("username", unknown)
		return Notice{Audience: AudienceUser, Recipient: u,
			Subject: "Usuario actualizado - " + u,
			Body:    "Se enviaría un correo notificando los cambios en la cuenta"}
	},
	event.UserDeleted: func(p event.Payload) Notice {
		u := p.StringOr("username", unknown)
		return Notice{Audience: AudienceUser, Recipient: u,
			Subject: "Usuario eliminado - " + u,
			Body:    "Se enviaría un correo notificando la desactivación de la cuenta"}
	},
	event.RoleCreated: func(p event.Payload) Notice {
		return Notice{Audience: AudienceAdmins,
			Subject: "Nuevo rol creado - " + p.StringOr("nombre", unknown),
			Body:    "Se notificaría a los administradores sobre el nuevo rol"}
	},
	event.RoleUpdated: func(p event.Payload) Notice {
		return Notice{Audience: AudienceHolder,
			Subject: "Rol actualizado - " + p.StringOr("nombre", unknown),
			Body:    "Se notificaría a los usuarios afectados por el cambio de rol"}
	},
	event.RoleDeleted: func(p event.Payload) Notice {
		return Notice{Audience: AudienceHolder,
			Subject: "Rol eliminado - " + p.StringOr("nombre", unknown),
			Body:    "Se notificaría a los usuarios afectados por la eliminación del rol"}
	},
	event.RoleAssigned: func(p event.Payload) Notice {
		u, rol := p.StringOr("username", unknown), p.StringOr("rolNombre", unknown)
		return Notice{Audience: AudienceUser, Recipient: u,
			Subject: fmt.Sprintf("Rol asignado - Usuario: %s, Rol: %s", u, rol),
			Body:    "Se notificaría al usuario sobre sus nuevos permisos"}
	},
	event.RoleAssignedAuto: func(p event.Payload) Notice {
		u, rol := p.StringOr("username", unknown), p.StringOr("rolNombre", unknown)
		return Notice{Audience: AudienceUser, Recipient: u,
			Subject: fmt.Sprintf("Rol asignado automáticamente - Usuario: %s, Rol: %s", u, rol),
			Body:    "Se notificaría al usuario sobre su rol por defecto"}
	},
	event.RoleRemovedAuto: func(p event.Payload) Notice {
		u := p.StringOr("idUsuario", unknown)
		return Notice{Audience: AudienceUser, Recipient: u,
			Subject: fmt.Sprintf("Rol retirado - Usuario: %s, Rol: %s", u, p.StringOr("rolNombre", unknown)),
			Body:    "Se notificaría al usuario que el rol fue eliminado"}
	},
}

// Notifier 事件 -> 通知；没有持久化，所有错误只记日志
type Notifier struct {
	sender Sender
	log    *zap.Logger
}

func NewNotifier(s Sender, l *zap.Logger) *Notifier {
	l = l.Named("notifier")
	if s == nil {
		s = LogSender{Log: l}
	}
	return &Notifier{sender: s, log: l}
}

func (n *Notifier) Name() string         { return "notifier" }
func (n *Notifier) Topics() []event.Type { return event.All }

func (n *Notifier) Handle(ctx context.Context, e event.Envelope) error {
	build, ok := noticeBuilders[e.EventType]
	if !ok {
		n.log.Warn("unrecognized event type", zap.String("event_type", string(e.EventType)))
		return nil
	}
	p, err := event.ParsePayload(e.Data)
	if err != nil {
		n.log.Error("bad payload; notification skipped", zap.String("event_type", string(e.EventType)), zap.Error(err))
		return nil
	}
	notice := build(p)
	notice.EventType = e.EventType
	if err := n.sender.Send(ctx, notice); err != nil {
		n.log.Error("send notification failed", zap.String("event_type", string(e.EventType)), zap.Error(err))
	}
	return nil
}
