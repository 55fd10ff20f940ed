package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Event subjects
const (
	SubjectLicensesAssigned   = "license.assigned"
	SubjectLicensesUnassigned = "license.unassigned"
)

// AssignmentRef identifies one (user, product) license in an event payload
type AssignmentRef struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

// LicenseEvent is published after an engine transaction commits
type LicenseEvent struct {
	EventType   string          `json:"event_type"`
	AccountID   string          `json:"account_id"`
	Assignments []AssignmentRef `json:"assignments"`
	Count       int             `json:"count"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Publisher wraps the NATS connection used for license lifecycle events
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Config holds NATS connection configuration
type Config struct {
	URL string
}

// NewPublisher connects to NATS and ensures the license events stream
// exists. The caller treats a connection failure as non-fatal; the service
// runs without event publishing.
func NewPublisher(cfg *Config) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("license-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logrus.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logrus.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// LimitsPolicy so multiple downstream consumers can read the stream
	_, err = js.AddStream(&nats.StreamConfig{
		Name:        "LICENSE_EVENTS",
		Description: "Stream for license lifecycle events",
		Subjects:    []string{"license.>"},
		Storage:     nats.FileStorage,
		Retention:   nats.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Discard:     nats.DiscardOld,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		logrus.WithError(err).Warn("could not create LICENSE_EVENTS stream (may already exist)")
	}

	return &Publisher{conn: conn, js: js}, nil
}

// Close drains the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// PublishLicensesAssigned publishes a license.assigned event
func (p *Publisher) PublishLicensesAssigned(accountID string, assignments []AssignmentRef) error {
	return p.publish(SubjectLicensesAssigned, accountID, assignments)
}

// PublishLicensesUnassigned publishes a license.unassigned event
func (p *Publisher) PublishLicensesUnassigned(accountID string, assignments []AssignmentRef) error {
	return p.publish(SubjectLicensesUnassigned, accountID, assignments)
}

func (p *Publisher) publish(subject, accountID string, assignments []AssignmentRef) error {
	event := LicenseEvent{
		EventType:   subject,
		AccountID:   accountID,
		Assignments: assignments,
		Count:       len(assignments),
		Timestamp:   time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}
	if _, err := p.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", subject, err)
	}
	return nil
}
