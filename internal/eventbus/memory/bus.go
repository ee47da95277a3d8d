package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"sum-admin/internal/event"
)

type subscription struct {
	name    string
	types   map[event.Type]struct{} // 为空表示全部
	handler event.Handler
}

// Bus 进程内扇出总线：同步投递给每个订阅者，处理器错误只记日志。
// 处理器内可以再次 Publish（二级事件），投递时不持锁。
type Bus struct {
	log  *zap.Logger
	mu   sync.RWMutex
	subs []subscription
}

func NewBus(l *zap.Logger) *Bus {
	if l == nil {
		l = zap.NewNop()
	}
	return &Bus{log: l.Named("membus")}
}

func (b *Bus) Subscribe(name string, h event.Handler, types ...event.Type) {
	s := subscription{name: name, handler: h, types: map[event.Type]struct{}{}}
	for _, t := range types {
		s.types[t] = struct{}{}
	}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
}

func (b *Bus) Publish(ctx context.Context, e event.Envelope) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		if len(s.types) > 0 {
			if _, ok := s.types[e.EventType]; !ok {
				continue
			}
		}
		if err := s.handler.Handle(ctx, e); err != nil {
			b.log.Warn("handler failed",
				zap.String("consumer", s.name),
				zap.String("event_type", string(e.EventType)),
				zap.String("event_id", e.ID),
				zap.Error(err))
		}
	}
	return nil
}

// Recorder 只记录不投递，测试里替代真实发布器
type Recorder struct {
	mu     sync.Mutex
	events []event.Envelope
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e event.Envelope) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Events() []event.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Envelope(nil), r.events...)
}

func (r *Recorder) OfType(t event.Type) []event.Envelope {
	var out []event.Envelope
	for _, e := range r.Events() {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}
