// Package notify consumes the platform's push notifications for a clinic
// topic over STOMP-on-WebSocket, independent of the REST token flow.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Kind discriminates the notification union.
type Kind string

const (
	KindLowStock            Kind = "LOW_STOCK"
	KindAppointmentReminder Kind = "APPOINTMENT_REMINDER"
	KindStockChanged        Kind = "STOCK_CHANGED"
	KindUnknown             Kind = "UNKNOWN"
)

// Message is one push notification. Exactly one payload field matching Kind
// is set; Raw always carries the original body for unknown kinds.
type Message struct {
	Kind     Kind
	ClinicID string

	LowStock    *LowStockAlert
	Appointment *AppointmentReminder
	Stock       *StockChange

	Raw []byte
}

// LowStockAlert signals a product at or below its threshold.
type LowStockAlert struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
}

// AppointmentReminder signals an upcoming appointment.
type AppointmentReminder struct {
	AppointmentID string    `json:"appointmentId"`
	PatientName   string    `json:"patientName"`
	DateTime      time.Time `json:"dateTime"`
}

// StockChange signals any stock movement on the clinic's inventory.
type StockChange struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Subscriber maintains a subscription to one clinic topic, reconnecting with
// a fixed delay until its context is cancelled.
type Subscriber struct {
	wsURL          string
	clinicID       string
	log            zerolog.Logger
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithReconnectDelay overrides the fixed reconnect delay.
func WithReconnectDelay(d time.Duration) SubscriberOption {
	return func(s *Subscriber) {
		s.reconnectDelay = d
	}
}

// NewSubscriber creates a subscriber for /topic/clinic/{clinicID}.
func NewSubscriber(wsURL, clinicID string, log zerolog.Logger, options ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		wsURL:          wsURL,
		clinicID:       clinicID,
		log:            log,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: 5 * time.Second,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Run starts consuming in a background goroutine and returns the message
// channel. Cancelling ctx unsubscribes: the connection closes and the
// channel is closed after the current read unwinds.
func (s *Subscriber) Run(ctx context.Context) <-chan Message {
	messages := make(chan Message, 16)
	go func() {
		defer close(messages)
		for {
			if err := s.consume(ctx, messages); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Dur("retry_in", s.reconnectDelay).Msg("notification stream dropped")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnectDelay):
			}
		}
	}()
	return messages
}

// consume runs one connect/subscribe/read cycle until the connection or the
// context ends.
func (s *Subscriber) consume(ctx context.Context, messages chan<- Message) error {
	conn, _, err := s.dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.wsURL, err)
	}
	defer conn.Close()

	// Close the socket when ctx ends so the blocking read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	connect := newFrame(cmdConnect, map[string]string{
		"accept-version": "1.2",
		"heart-beat":     "0,0",
	})
	if err := conn.WriteMessage(websocket.TextMessage, connect.Marshal()); err != nil {
		return fmt.Errorf("send CONNECT: %w", err)
	}

	f, err := s.readFrame(conn)
	if err != nil {
		return fmt.Errorf("await CONNECTED: %w", err)
	}
	if f == nil || f.Command != cmdConnected {
		return fmt.Errorf("unexpected frame %q while connecting", frameCommand(f))
	}

	destination := fmt.Sprintf("/topic/clinic/%s", s.clinicID)
	subscribe := newFrame(cmdSubscribe, map[string]string{
		"id":          "sub-0",
		"destination": destination,
	})
	if err := conn.WriteMessage(websocket.TextMessage, subscribe.Marshal()); err != nil {
		return fmt.Errorf("send SUBSCRIBE: %w", err)
	}
	s.log.Debug().Str("destination", destination).Msg("subscribed to clinic notifications")

	for {
		f, err := s.readFrame(conn)
		if err != nil {
			return err
		}
		if f == nil { // heartbeat
			continue
		}
		switch f.Command {
		case cmdMessage:
			msg := decodeMessage(s.clinicID, f.Body)
			select {
			case messages <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		case cmdError:
			return fmt.Errorf("broker error: %s", f.Headers["message"])
		}
	}
}

func (s *Subscriber) readFrame(conn *websocket.Conn) (*frame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return parseFrame(data)
}

func frameCommand(f *frame) string {
	if f == nil {
		return ""
	}
	return f.Command
}

// decodeMessage maps a broker payload onto the typed union by its type tag.
// Unknown kinds are still delivered, with only Raw populated.
func decodeMessage(clinicID string, body []byte) Message {
	msg := Message{Kind: KindUnknown, ClinicID: clinicID, Raw: body}

	parsed := gjson.ParseBytes(body)
	switch Kind(parsed.Get("type").String()) {
	case KindLowStock:
		msg.Kind = KindLowStock
		msg.LowStock = &LowStockAlert{
			ProductID:   parsed.Get("productId").String(),
			ProductName: parsed.Get("productName").String(),
			Quantity:    int(parsed.Get("quantity").Int()),
			Unit:        parsed.Get("unit").String(),
		}
	case KindAppointmentReminder:
		msg.Kind = KindAppointmentReminder
		reminder := &AppointmentReminder{
			AppointmentID: parsed.Get("appointmentId").String(),
			PatientName:   parsed.Get("patientName").String(),
		}
		if t, err := time.Parse(time.RFC3339, parsed.Get("dateTime").String()); err == nil {
			reminder.DateTime = t
		}
		msg.Appointment = reminder
	case KindStockChanged:
		msg.Kind = KindStockChanged
		msg.Stock = &StockChange{
			ProductID: parsed.Get("productId").String(),
			Quantity:  int(parsed.Get("quantity").Int()),
		}
	}
	return msg
}
