package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/intravision-core/internal/entity"
	"github.com/nerrad567/intravision-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/intravision-core/internal/wire"
)

// Locator finds entities by ID. The broker satisfies it.
type Locator interface {
	FindEntity(id string) (entity.Entity, bool)
}

// Bus is the subset of the MQTT client used by the service.
type Bus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	QoS() byte
}

// Logger defines the logging interface used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the service dependencies. Logger is optional.
type Deps struct {
	Locator Locator
	Bus     Bus
	Logger  Logger
}

// Ack is published after each state message.
type Ack struct {
	EntityID  string   `json:"entity_id"`
	Success   bool     `json:"success"`
	Applied   []string `json:"applied,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// Service subscribes to entity state topics and applies them.
type Service struct {
	locator Locator
	bus     Bus
	logger  Logger
}

// New creates an ingest service.
func New(deps Deps) (*Service, error) {
	if deps.Locator == nil {
		return nil, fmt.Errorf("ingest: locator is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("ingest: bus is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{locator: deps.Locator, bus: deps.Bus, logger: logger}, nil
}

// Start subscribes to every entity state topic.
func (s *Service) Start() error {
	topic := mqtt.Topics{}.AllEntityStates()
	if err := s.bus.Subscribe(topic, s.bus.QoS(), s.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	s.logger.Info("ingest started", "topic", topic)
	return nil
}

// Stop unsubscribes from the state topics.
func (s *Service) Stop() error {
	if err := s.bus.Unsubscribe(mqtt.Topics{}.AllEntityStates()); err != nil {
		return fmt.Errorf("unsubscribing state topics: %w", err)
	}
	return nil
}

// HandleMessage is the MQTT handler for state topics.
func (s *Service) HandleMessage(topic string, payload []byte) error {
	id, ok := mqtt.Topics{}.EntityIDFromState(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	applied, err := s.Apply(id, payload)
	s.publishAck(id, applied, err)
	return err
}

// Apply updates an entity from a wire-form property object.
//
// Identity keys are ignored. Every other key is applied independently; a
// rejected property does not stop the rest. The returned slice names the
// properties that were accepted, in key order.
func (s *Service) Apply(entityID string, payload []byte) ([]string, error) {
	e, ok := s.locator.FindEntity(entityID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrInvalidPayload)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !wire.IsIdentityKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var applied []string
	var errs []error
	schema := e.Schema()
	for _, k := range keys {
		f, ok := schema.FieldByWire(k)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s does not contain %s", entity.ErrUnknownProperty, e.Name(), k))
			continue
		}
		name := f.Name
		value := fields[k]
		if current, ok := e.Property(name); ok {
			value = entity.Coerce(current, value)
		}
		if err := e.UpdateProperty(name, value); err != nil {
			errs = append(errs, err)
			continue
		}
		applied = append(applied, name)
	}

	s.logger.Debug("state applied",
		"entity", e.Name(),
		"applied", len(applied),
		"rejected", len(errs),
	)
	return applied, errors.Join(errs...)
}

func (s *Service) publishAck(entityID string, applied []string, err error) {
	ack := Ack{
		EntityID:  entityID,
		Success:   err == nil,
		Applied:   applied,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		ack.Errors = splitErrors(err)
	}

	payload, mErr := json.Marshal(ack)
	if mErr != nil {
		s.logger.Error("encoding ingest ack failed", "entity_id", entityID, "error", mErr)
		return
	}
	if pErr := s.bus.Publish(mqtt.Topics{}.EntityAck(entityID), payload, s.bus.QoS(), false); pErr != nil {
		s.logger.Warn("publishing ingest ack failed", "entity_id", entityID, "error", pErr)
	}
}

// splitErrors flattens an errors.Join result into messages.
func splitErrors(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		out := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
