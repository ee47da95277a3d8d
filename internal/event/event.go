package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	UserCreated      Type = "user_created"
	UserUpdated      Type = "user_updated"
	UserDeleted      Type = "user_deleted"
	RoleCreated      Type = "role_created"
	RoleUpdated      Type = "role_updated"
	RoleDeleted      Type = "role_deleted"
	RoleAssigned     Type = "role_assigned"
	RoleAssignedAuto Type = "role_assigned_auto"
	RoleRemovedAuto  Type = "role_removed_auto"
)

// All 全部已知事件类型（也是 RabbitMQ 路由键）
var All = []Type{
	UserCreated, UserUpdated, UserDeleted,
	RoleCreated, RoleUpdated, RoleDeleted,
	RoleAssigned, RoleAssignedAuto, RoleRemovedAuto,
}

const DataVersion = "1.0"

// Actor 触发变更的操作者；来自 JWT 与客户端 IP，可能为空
type Actor struct {
	UserID   *int64 `json:"idUsuario,omitempty"`
	Username string `json:"username,omitempty"`
	IP       string `json:"ip,omitempty"`
}

type Envelope struct {
	ID          string          `json:"id"`
	Subject     string          `json:"subject"`
	EventType   Type            `json:"eventType"`
	EventTime   time.Time       `json:"eventTime"`
	DataVersion string          `json:"dataVersion"`
	Actor       *Actor          `json:"actor,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// New 序列化 data 并补齐 id / 时间 / 版本
func New(t Type, subject string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{
		ID:          uuid.NewString(),
		Subject:     subject,
		EventType:   t,
		EventTime:   time.Now().UTC(),
		DataVersion: DataVersion,
		Data:        raw,
	}, nil
}

// Decode 解析投递消息体；只要求 eventType 存在
func Decode(body []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if e.EventType == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing eventType")
	}
	if len(e.Data) == 0 {
		e.Data = json.RawMessage("{}")
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Envelope) error
}

type Handler interface {
	Handle(ctx context.Context, e Envelope) error
}

type HandlerFunc func(ctx context.Context, e Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, e Envelope) error { return f(ctx, e) }

type actorKey struct{}

func WithActor(ctx context.Context, a *Actor) context.Context {
	if a == nil {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) *Actor {
	a, _ := ctx.Value(actorKey{}).(*Actor)
	return a
}
