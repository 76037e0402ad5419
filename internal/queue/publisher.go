package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/seating-core/internal/hold"
)

// Exchange is the durable topic exchange hold events go to.
const Exchange = "seating.events"

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
    ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
    PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
    Close() error
}

// Publisher sends hold events to RabbitMQ.  It keeps one channel open and
// redials lazily after a failure; errors are logged and returned so the
// hold manager can carry on.
type Publisher struct {
    url  string
    dial func(url string) (channel, error)

    mu sync.Mutex
    ch channel
}

// NewPublisher returns a publisher for the broker at url.  Nothing is dialed
// until the first event.
func NewPublisher(url string) *Publisher {
    return &Publisher{url: url, dial: dialChannel}
}

func dialChannel(url string) (channel, error) {
    conn, err := amqp.Dial(url)
    if err != nil {
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, err
    }
    return &connChannel{Channel: ch, conn: conn}, nil
}

// connChannel closes its connection together with the channel.
type connChannel struct {
    *amqp.Channel
    conn *amqp.Connection
}

func (c *connChannel) Close() error {
    _ = c.Channel.Close()
    return c.conn.Close()
}

// Publish implements hold.Publisher.
func (p *Publisher) Publish(ctx context.Context, ev hold.Event) error {
    msg := fromHold(ev)
    body, err := json.Marshal(msg)
    if err != nil {
        return err
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch == nil {
        ch, err := p.dial(p.url)
        if err != nil {
            log.Printf("rabbitmq: dial failed: %v", err)
            return err
        }
        // Durable so events survive broker restarts.
        if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
            _ = ch.Close()
            log.Printf("rabbitmq: exchange declare failed: %v", err)
            return err
        }
        p.ch = ch
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        MessageId:    fmt.Sprintf("%s:%s", msg.Type, msg.HoldID),
        Body:         body,
    }
    if err := p.ch.PublishWithContext(ctx, Exchange, msg.RoutingKey(), false, false, pub); err != nil {
        log.Printf("rabbitmq: publish %s failed: %v", msg.RoutingKey(), err)
        _ = p.ch.Close()
        p.ch = nil
        return err
    }
    return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch == nil {
        return nil
    }
    err := p.ch.Close()
    p.ch = nil
    return err
}
