package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"scald/internal/model"
	"scald/internal/view"
)

// Notification is the wire payload published for each newly due event.
type Notification struct {
	EventID    string    `json:"event_id"`
	CalendarID string    `json:"calendar_id"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Notifier publishes newly due events to a NATS subject after each sync
// cycle. An event is due once it is active; each event is published at most
// once per process lifetime.
type Notifier struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger

	mu        sync.Mutex
	published map[string]struct{}
}

// New connects to NATS and returns a Notifier publishing to subject.
func New(url, subject string, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	options := []nats.Option{
		nats.Name("scald"),
		nats.Timeout(5 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}

	logger.Info("notifier connected", "url", conn.ConnectedUrl(), "subject", subject)
	return &Notifier{
		conn:      conn,
		subject:   subject,
		logger:    logger,
		published: make(map[string]struct{}),
	}, nil
}

// Close drains and closes the NATS connection.
func (n *Notifier) Close() {
	if err := n.conn.Drain(); err != nil {
		n.logger.Warn("nats drain failed", "error", err)
		n.conn.Close()
	}
}

// PublishDue publishes every active event of the given calendars that has
// not been published before. Returns the number published; publish failures
// leave the event unmarked so the next cycle retries it.
func (n *Notifier) PublishDue(ctx context.Context, calendars []model.Calendar, now time.Time) (int, error) {
	if n.conn.IsClosed() {
		return 0, fmt.Errorf("nats connection is closed")
	}

	due := n.unpublished(view.Derive(calendars, now))
	count := 0
	for _, e := range due {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		data, err := json.Marshal(Notification{
			EventID:    e.ID,
			CalendarID: e.CalendarID,
			Title:      e.Title,
			Start:      e.Start,
			End:        e.End,
		})
		if err != nil {
			return count, fmt.Errorf("marshal notification: %w", err)
		}

		if err := n.conn.Publish(n.subject, data); err != nil {
			return count, fmt.Errorf("publish event %s: %w", e.ID, err)
		}

		n.markPublished(e.ID)
		count++
		n.logger.Debug("published due event", "event_id", e.ID, "title", e.Title)
	}
	return count, nil
}

// unpublished filters events down to those not yet announced.
func (n *Notifier) unpublished(events []model.Event) []model.Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	var due []model.Event
	for _, e := range events {
		if _, ok := n.published[e.ID]; ok {
			continue
		}
		due = append(due, e)
	}
	return due
}

func (n *Notifier) markPublished(id string) {
	n.mu.Lock()
	n.published[id] = struct{}{}
	n.mu.Unlock()
}
