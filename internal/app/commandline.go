package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Command line errors.
var (
	ErrEmptyCommand     = errors.New("shipctl: command is empty")
	ErrUnknownCommand   = errors.New("shipctl: unknown command")
	ErrMissingArguments = errors.New("shipctl: command missing arguments")
)

// Execute parses a textual command and runs it against c. The grammar is
//
//	module   get|toggle|on|off|fix|standby <module> [requester]
//	property get|toggle|on|off <module> <property> [requester]
//	check
//	reset
//
// "list", "set", "reset" and "repair" are accepted as aliases of the
// matching verbs. Arguments containing spaces are quoted
// with double quotes. A trailing requester overrides the given one.
func Execute(ctx context.Context, c Controller, line, requester string) (Reply, error) {
	args, err := splitArgs(line)
	if err != nil {
		return Reply{}, err
	}
	if len(args) == 0 {
		return Reply{}, ErrEmptyCommand
	}

	switch args[0] {
	case "module":
		return executeModule(ctx, c, args[1:], requester)
	case "property":
		return executeProperty(ctx, c, args[1:], requester)
	case "check":
		queued, err := c.Check(ctx)
		if err != nil {
			return Reply{}, err
		}
		if !queued {
			return Reply{Code: 0, Text: "check already pending"}, nil
		}
		return Reply{Code: 1, Text: "check queued"}, nil
	case "reset":
		if err := c.Reset(ctx, "reset command"); err != nil {
			return Reply{}, err
		}
		return Reply{Code: 1, Text: "session reset"}, nil
	default:
		return Reply{}, fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
}

func executeModule(ctx context.Context, c Controller, args []string, requester string) (Reply, error) {
	if len(args) < 2 {
		return Reply{}, ErrMissingArguments
	}
	sub, module := args[0], args[1]
	if len(args) > 2 {
		requester = args[2]
	}

	switch sub {
	case "get", "list":
		return c.GetState(ctx, module, requester)
	case "toggle":
		return c.ToggleState(ctx, module, requester)
	case "on", "set":
		return c.SetState(ctx, module, requester, true)
	case "off", "reset":
		return c.SetState(ctx, module, requester, false)
	case "fix", "repair":
		return c.TryFixError(ctx, module, requester)
	case "standby":
		return c.Standby(ctx, module, requester)
	default:
		return Reply{}, fmt.Errorf("%w: module %s", ErrUnknownCommand, sub)
	}
}

func executeProperty(ctx context.Context, c Controller, args []string, requester string) (Reply, error) {
	if len(args) < 3 {
		return Reply{}, ErrMissingArguments
	}
	sub, module, property := args[0], args[1], args[2]
	if len(args) > 3 {
		requester = args[3]
	}

	switch sub {
	case "get", "list":
		return c.GetProperty(ctx, module, property, requester)
	case "toggle":
		return c.ToggleProperty(ctx, module, property, requester)
	case "on", "set":
		return c.SetProperty(ctx, module, property, requester, true)
	case "off", "reset":
		return c.SetProperty(ctx, module, property, requester, false)
	default:
		return Reply{}, fmt.Errorf("%w: property %s", ErrUnknownCommand, sub)
	}
}

// splitArgs splits on whitespace, keeping double-quoted runs together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote", ErrUnknownCommand)
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}
