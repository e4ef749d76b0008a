package queue

import (
    "context"
    "encoding/json"
    "fmt"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// AMQPPublisher publishes schedule events to a durable RabbitMQ queue via
// the default exchange.  A connection is dialed per publish, which keeps
// the publisher stateless across broker restarts at the cost of a dial per
// event.
type AMQPPublisher struct {
    url    string
    queue  string
    logger *zap.Logger
}

// NewAMQPPublisher returns a publisher for the given broker URL and queue.
func NewAMQPPublisher(url, queue string, logger *zap.Logger) *AMQPPublisher {
    return &AMQPPublisher{url: url, queue: queue, logger: logger}
}

// Publish marshals ev and sends it as a persistent JSON message.  Errors
// are returned so the caller decides whether they matter.
func (p *AMQPPublisher) Publish(ctx context.Context, ev ScheduleEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        return fmt.Errorf("dial broker: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := declareQueue(ch, p.queue); err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.ID,
        Type:         ev.Type,
        Timestamp:    ev.OccurredAt,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        return fmt.Errorf("publish %s: %w", ev.Type, err)
    }
    p.logger.Debug("Schedule event published", zap.String("type", ev.Type), zap.String("event_id", ev.ID))
    return nil
}

// declareQueue makes sure the durable queue exists.  Declaring is
// idempotent so both the publisher and the consumer do it.
func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
    q, err := ch.QueueDeclare(
        name,  // name
        true,  // durable
        false, // autoDelete
        false, // exclusive
        false, // noWait
        nil,   // args
    )
    if err != nil {
        return q, fmt.Errorf("declare queue %s: %w", name, err)
    }
    return q, nil
}
