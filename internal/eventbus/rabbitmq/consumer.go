package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"sum-admin/internal/event"
)

type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Keys     []event.Type // 绑定的路由键
	Prefetch int
	Tag      string
}

// Consumer 每个消费者一条独立队列。
// 投递语义至多一次：无论处理成功与否都 ack，不重排队。
type Consumer struct {
	cfg     ConsumerConfig
	handler event.Handler
	log     *zap.Logger
}

func NewConsumer(cfg ConsumerConfig, h event.Handler, l *zap.Logger) *Consumer {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 10
	}
	if cfg.Tag == "" {
		cfg.Tag = cfg.Queue
	}
	return &Consumer{
		cfg:     cfg,
		handler: h,
		log:     l.With(zap.String("component", "rabbitmq_consumer"), zap.String("queue", cfg.Queue)),
	}
}

// backoff 重连等待：每次失败翻倍，封顶 hi；成功开始消费后回到 lo
type backoff struct {
	lo, hi, cur time.Duration
}

func newBackoff(lo, hi time.Duration) *backoff { return &backoff{lo: lo, hi: hi, cur: lo} }

func (b *backoff) next() time.Duration {
	d := b.cur
	b.cur = min(b.cur*2, b.hi)
	return d
}

func (b *backoff) reset() { b.cur = b.lo }

// Run 断线后指数退避重连，直到 ctx 结束
func (c *Consumer) Run(ctx context.Context) error {
	bo := newBackoff(time.Second, 30*time.Second)

	for {
		err := c.consume(ctx, bo.reset)
		if ctx.Err() != nil {
			return nil
		}
		wait := bo.next()
		if err != nil {
			c.log.Error("consume failed; retrying", zap.Error(err), zap.Duration("backoff", wait))
		} else {
			c.log.Warn("deliveries closed; reconnecting", zap.Duration("backoff", wait))
		}
		if !sleepOrDone(ctx, wait) {
			return nil
		}
	}
}

// consume 建好队列并开始消费后调用 started
func (c *Consumer) consume(ctx context.Context, started func()) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if err := declareExchange(ch, c.cfg.Exchange); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, k := range c.cfg.Keys {
		if err := ch.QueueBind(q.Name, string(k), c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", k, err)
		}
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, c.cfg.Tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	started()
	c.log.Info("consumer started", zap.Int("bindings", len(c.cfg.Keys)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	log := c.log.With(zap.String("routing_key", d.RoutingKey), zap.String("message_id", d.MessageId))

	e, err := event.Decode(d.Body)
	if err != nil {
		log.Warn("malformed delivery; dropping", zap.Error(err))
		ack(log, d)
		return
	}
	if err := c.handler.Handle(ctx, e); err != nil {
		log.Error("handler failed; not retried",
			zap.String("event_type", string(e.EventType)),
			zap.String("event_id", e.ID),
			zap.Error(err))
	}
	ack(log, d)
}

func ack(log *zap.Logger, d amqp.Delivery) {
	if err := d.Ack(false); err != nil && !errors.Is(err, amqp.ErrClosed) {
		log.Warn("ack failed", zap.Error(err))
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
