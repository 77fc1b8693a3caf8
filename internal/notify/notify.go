// Package notify publishes finished build reports to NATS.
package notify

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/report"
)

const flushTimeout = 5 * time.Second

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Publisher sends the JSON build report on a subject.
type Publisher struct {
	conn    Conn
	subject string
}

// Connect dials the server configured in cfg.Notify. It returns nil without error
// if notification is disabled.
func Connect(cfg *config.Config) (*Publisher, error) {
	if cfg.Notify.URL == "" {
		return nil, nil
	}
	conn, err := nats.Connect(cfg.Notify.URL,
		nats.Name("texbuilder"),
		nats.Timeout(flushTimeout),
	)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryNotify, "failed to connect to NATS").
			WithContext("url", cfg.Notify.URL).
			Build()
	}
	slog.Debug("Connected to NATS", slog.String("url", cfg.Notify.URL), slog.String("subject", cfg.Notify.Subject))
	return New(conn, cfg.Notify.Subject), nil
}

// New wraps an established connection.
func New(conn Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

// Publish sends rep and waits until the server has received it. A nil publisher
// does nothing.
func (p *Publisher) Publish(rep *report.BuildReport) error {
	if p == nil {
		return nil
	}
	data, err := rep.JSON()
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryNotify, "failed to marshal build report").Build()
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryNotify, "failed to publish build report").
			WithContext("subject", p.subject).
			Build()
	}
	if err := p.conn.FlushTimeout(flushTimeout); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryNotify, "failed to flush build report").
			WithContext("subject", p.subject).
			Build()
	}
	slog.Info("Published build report", logfields.BuildID(rep.BuildID), slog.String("subject", p.subject))
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() {
	if p != nil {
		p.conn.Close()
	}
}
