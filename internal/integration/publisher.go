package integration

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/timeclock-server/timeclock-server-pro/internal/config"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
)

// Publisher pushes domain events to NATS for payroll and reporting
// integrations. The bus is optional: a nil connection turns every
// publish into a no-op, and publish failures never fail the request
// that produced the event.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher wraps a NATS connection; nc may be nil
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Connect dials NATS with reconnect handling. Returns nil without
// error when no URL is configured.
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectInterval),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// PunchEvent is the payload published on punch transitions
type PunchEvent struct {
	TenantID   uuid.UUID  `json:"tenantId"`
	EmployeeID uuid.UUID  `json:"employeeId"`
	PunchID    uuid.UUID  `json:"punchId"`
	Action     string     `json:"action"`
	Date       time.Time  `json:"date"`
	CheckIn    time.Time  `json:"checkIn"`
	CheckOut   *time.Time `json:"checkOut,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// LeaveEvent is the payload published on leave status changes
type LeaveEvent struct {
	TenantID   uuid.UUID `json:"tenantId"`
	EmployeeID uuid.UUID `json:"employeeId"`
	RequestID  uuid.UUID `json:"requestId"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Timestamp  time.Time `json:"timestamp"`
}

// PublishPunch emits timeclock.{tenant}.punch.{action}
func (p *Publisher) PublishPunch(action models.SealAction, punch *models.Punch) {
	event := PunchEvent{
		TenantID:   punch.TenantID,
		EmployeeID: punch.EmployeeID,
		PunchID:    punch.ID,
		Action:     string(action),
		Date:       punch.Date,
		CheckIn:    punch.CheckIn,
		CheckOut:   punch.CheckOut,
		Timestamp:  time.Now().UTC(),
	}
	subject := fmt.Sprintf("timeclock.%s.punch.%s", punch.TenantID, action)
	p.publish(subject, event)
}

// PublishLeave emits timeclock.{tenant}.leave.{status}
func (p *Publisher) PublishLeave(r *models.LeaveRequest) {
	event := LeaveEvent{
		TenantID:   r.TenantID,
		EmployeeID: r.EmployeeID,
		RequestID:  r.ID,
		Kind:       string(r.Kind),
		Status:     string(r.Status),
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		Timestamp:  time.Now().UTC(),
	}
	subject := fmt.Sprintf("timeclock.%s.leave.%s", r.TenantID, r.Status)
	p.publish(subject, event)
}

func (p *Publisher) publish(subject string, event interface{}) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to marshal event")
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish event")
		return
	}

	log.Debug().Str("subject", subject).Msg("Event published")
}
