package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"sum-admin/internal/domain"
	"sum-admin/internal/event"
)

// emitter 写库成功后发布事件；发布失败只记日志，不影响调用方
type emitter struct {
	pub event.Publisher
	log *zap.Logger
}

func (m emitter) emit(ctx context.Context, t event.Type, source string, data any) {
	e, err := event.New(t, source, data)
	if err == nil {
		e.Actor = event.ActorFrom(ctx)
		// 请求被取消时已提交的写入仍然要发事件
		err = m.pub.Publish(context.WithoutCancel(ctx), e)
	}
	if err != nil {
		m.log.Warn("event publish failed",
			zap.String("event_type", string(t)),
			zap.String("source", source),
			zap.Error(domain.EventPublish(string(t), err)))
	}
}

func required(v string) (string, bool) {
	v = strings.TrimSpace(v)
	return v, v != ""
}

// taken 判断 lookup 是否找到了另一条记录
func taken(lookup func() (int64, error), self int64) (bool, error) {
	id, err := lookup()
	switch {
	case domain.IsKind(err, domain.KindNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return id != self, nil
}

var errNilPublisher = errors.New("service: nil event publisher")
