package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// AuditConsumer listens to the schedule events queue and appends one line
// per event to <Dir>/schedule.log.
type AuditConsumer struct {
    URL    string
    Queue  string
    Dir    string
    Logger *zap.Logger
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Dial
// failures back off exponentially up to 30s; a closed delivery channel
// triggers a reconnect.  Messages that cannot be processed are rejected
// without requeue to avoid tight redelivery loops.
func (c *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Logger.Warn("Schedule consumer dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Logger.Warn("Schedule consumer loop ended, reconnecting", zap.Error(err))
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Logger.Warn("Schedule consumer QoS failed", zap.Error(err))
    }
    if _, err := declareQueue(ch, c.Queue); err != nil {
        return err
    }
    msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("consume %s: %w", c.Queue, err)
    }
    c.Logger.Info("Schedule consumer started", zap.String("queue", c.Queue))

    for d := range msgs {
        if err := c.handle(d.Body); err != nil {
            c.Logger.Error("Schedule event rejected", zap.Error(err), zap.String("message_id", d.MessageId))
            _ = d.Nack(false, false)
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func (c *AuditConsumer) handle(body []byte) error {
    var ev ScheduleEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }
    if err := os.MkdirAll(c.Dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.Dir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.Dir, "schedule.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatAuditLine renders ev as a single human readable line ending in a
// newline.  Zero-valued fields are skipped.
func FormatAuditLine(ev ScheduleEvent) string {
    parts := []string{fmt.Sprintf("[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type)}
    add := func(key string, v uint64) {
        if v != 0 {
            parts = append(parts, fmt.Sprintf("%s=%d", key, v))
        }
    }
    add("student_id", ev.StudentID)
    add("course_id", ev.CourseID)
    add("slot_id", ev.SlotID)
    add("batch_id", ev.BatchID)
    add("seat", uint64(ev.SeatNumber))
    add("request_id", ev.RequestID)
    add("batches", uint64(ev.BatchCount))
    if ev.Action != "" {
        parts = append(parts, "action="+ev.Action)
    }
    if ev.Status != "" {
        parts = append(parts, "status="+ev.Status)
    }
    return strings.Join(parts, " | ") + "\n"
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
