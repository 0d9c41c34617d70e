package mqtt

import (
	"context"
	"encoding/json"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/ports"
)

// CloudEvents types published by the notifier.
const (
	EventSessionReset     = "io.shipctl.session.reset"
	EventModuleRegistered = "io.shipctl.module.registered"
	EventModulesLoaded    = "io.shipctl.modules.loaded"
	EventModuleState      = "io.shipctl.module.state"
	EventPropertyState    = "io.shipctl.property.state"
	EventCommandOutput    = "io.shipctl.command.output"
	EventCheckOutput      = "io.shipctl.check.output"
)

// DefaultQueueSize bounds the notifications waiting to be published.
const DefaultQueueSize = 256

const dropSink = "mqtt"

type message struct {
	topic    string
	payload  []byte
	retained bool
}

// Notifier implements ports.Notifier by publishing CloudEvents (structured
// JSON mode). Notifications are queued and published by Run so that the
// controller thread never waits on the broker; when the queue is full the
// notification is dropped and counted on the recorder.
type Notifier struct {
	pub      Publisher
	topics   Topics
	source   string
	recorder ports.Recorder
	logger   ports.Logger
	now      func() time.Time

	queue chan message
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier publishing through pub. recorder may be
// nil.
func NewNotifier(pub Publisher, topics Topics, recorder ports.Recorder, logger ports.Logger) *Notifier {
	if recorder == nil {
		recorder = ports.NoopRecorder{}
	}
	return &Notifier{
		pub:      pub,
		topics:   topics,
		source:   topics.base(),
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		queue:    make(chan message, DefaultQueueSize),
	}
}

// Run publishes queued notifications until ctx is done, then publishes what
// is left in the queue.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case m := <-n.queue:
			n.publish(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-n.queue:
					n.publish(m)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) publish(m message) {
	if err := n.pub.Publish(m.topic, m.payload, m.retained); err != nil {
		n.logger.Warn("publish notification failed",
			ports.String("topic", m.topic),
			ports.Err(err),
		)
	}
}

func (n *Notifier) emit(topic, eventType, subject string, data any, retained bool) {
	event := cloudevents.NewEvent()
	event.SetID(eventID())
	event.SetSource(n.source)
	event.SetType(eventType)
	event.SetTime(n.now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if subject != "" {
		event.SetSubject(subject)
	}
	if data != nil {
		if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
			n.logger.Error("encode notification", ports.String("type", eventType), ports.Err(err))
			return
		}
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("encode notification", ports.String("type", eventType), ports.Err(err))
		return
	}

	select {
	case n.queue <- message{topic: topic, payload: payload, retained: retained}:
	default:
		n.recorder.NotificationDropped(dropSink)
		n.logger.Warn("notification queue full, dropping", ports.String("type", eventType))
	}
}

func eventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// StateData is the payload of module state and registration events.
type StateData struct {
	Module     string                `json:"module"`
	State      domain.ModuleState    `json:"state"`
	StateName  string                `json:"state_name"`
	Properties []domain.PropertyView `json:"properties,omitempty"`
}

// PropertyData is the payload of property state events.
type PropertyData struct {
	Module   string `json:"module"`
	Property string `json:"property"`
	State    bool   `json:"state"`
}

// OutputData is the payload of command and check output events.
type OutputData struct {
	Module    string `json:"module,omitempty"`
	Requester string `json:"requester,omitempty"`
	Text      string `json:"text"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Reset implements ports.Notifier.
func (n *Notifier) Reset() {
	n.emit(n.topics.Session(), EventSessionReset, "", nil, false)
}

// RegisterModule implements ports.Notifier.
func (n *Notifier) RegisterModule(name string, state domain.ModuleState, props []domain.PropertyView) {
	n.emit(n.topics.Session(), EventModuleRegistered, name, StateData{
		Module:     name,
		State:      state,
		StateName:  state.String(),
		Properties: props,
	}, false)
}

// ModulesLoaded implements ports.Notifier.
func (n *Notifier) ModulesLoaded() {
	n.emit(n.topics.Session(), EventModulesLoaded, "", nil, false)
}

// ModuleState implements ports.Notifier.
func (n *Notifier) ModuleState(name string, state domain.ModuleState) {
	n.emit(n.topics.ModuleState(name), EventModuleState, name, StateData{
		Module:    name,
		State:     state,
		StateName: state.String(),
	}, true)
}

// PropertyState implements ports.Notifier.
func (n *Notifier) PropertyState(module, property string, state bool) {
	n.emit(n.topics.Property(module, property), EventPropertyState, module, PropertyData{
		Module:   module,
		Property: property,
		State:    state,
	}, true)
}

// CommandOutput implements ports.Notifier.
func (n *Notifier) CommandOutput(module, requester, text string, isError bool) {
	n.emit(n.topics.Output(requester), EventCommandOutput, module, OutputData{
		Module:    module,
		Requester: requester,
		Text:      text,
		IsError:   isError,
	}, false)
}

// CheckOutput implements ports.Notifier.
func (n *Notifier) CheckOutput(module, text string) {
	n.emit(n.topics.Check(module), EventCheckOutput, module, OutputData{
		Module: module,
		Text:   text,
	}, false)
}
