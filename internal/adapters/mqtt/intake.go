package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/bft-labs/shipctl/internal/app"
	"github.com/bft-labs/shipctl/internal/ports"
)

// DefaultRequester is used for commands that name no requester.
const DefaultRequester = "mqtt"

const commandTimeout = 10 * time.Second

// CommandMessage is the JSON form of a command. It may also arrive as the
// data of a CloudEvent.
type CommandMessage struct {
	Command   string `json:"command"`
	Requester string `json:"requester,omitempty"`
}

// Intake runs console commands received on the commands topic.
//
// Payloads are a plain command line, a CommandMessage, or a CloudEvent
// carrying a CommandMessage. Output of module commands reaches the
// requester through the host's notifier; output of commands that never
// reach a module goes to out directly.
type Intake struct {
	ctrl   app.Controller
	sub    Subscriber
	out    ports.Notifier
	topics Topics
	logger ports.Logger

	ctx context.Context
}

// NewIntake creates a command intake.
func NewIntake(ctrl app.Controller, sub Subscriber, out ports.Notifier, topics Topics, logger ports.Logger) *Intake {
	return &Intake{ctrl: ctrl, sub: sub, out: out, topics: topics, logger: logger}
}

// Start subscribes to the commands topic. Commands are run with contexts
// derived from ctx.
func (i *Intake) Start(ctx context.Context) error {
	i.ctx = ctx
	return i.sub.Subscribe(i.topics.Commands(), i.handle)
}

func (i *Intake) handle(topic string, payload []byte) {
	msg, err := decodeCommand(payload)
	if err != nil {
		i.logger.Warn("invalid command message", ports.String("topic", topic), ports.Err(err))
		return
	}
	if msg.Requester == "" {
		msg.Requester = DefaultRequester
	}

	ctx, cancel := context.WithTimeout(i.ctx, commandTimeout)
	defer cancel()

	reply, err := app.Execute(ctx, i.ctrl, msg.Command, msg.Requester)
	switch {
	case err != nil && reply.Text == "":
		i.out.CommandOutput("", msg.Requester, err.Error(), true)
	case err == nil && reply.Module == "":
		i.out.CommandOutput("", msg.Requester, reply.Text, reply.IsError)
	}
}

func decodeCommand(payload []byte) (CommandMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return CommandMessage{Command: string(trimmed)}, nil
	}

	var probe struct {
		CommandMessage
		SpecVersion string `json:"specversion"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return CommandMessage{}, err
	}
	if probe.SpecVersion == "" {
		return probe.CommandMessage, nil
	}

	event := cloudevents.NewEvent()
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return CommandMessage{}, err
	}
	var msg CommandMessage
	if err := event.DataAs(&msg); err != nil {
		return CommandMessage{}, err
	}
	if msg.Requester == "" {
		msg.Requester = strings.TrimSpace(event.Source())
	}
	return msg, nil
}
