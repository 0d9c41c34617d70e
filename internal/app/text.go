package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/shipctl/internal/domain"
)

// onOff renders a property or device value.
func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func actionText(a domain.Action) string {
	if a.NeededState {
		return "set " + a.Property
	}
	return "reset " + a.Property
}

func waitText(m *domain.Module, now time.Time) string {
	wait := m.DelayTarget().Sub(now).Round(100 * time.Millisecond)
	return fmt.Sprintf("not ready, retry in %s", wait)
}

func rejectText(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownModule):
		return "module not found"
	case errors.Is(err, domain.ErrInitFailed):
		return "modules failed to initialize"
	case errors.Is(err, domain.ErrNotRunning):
		return "modules not loaded"
	default:
		return err.Error()
	}
}

func stateText(r domain.Result, m *domain.Module, now time.Time) string {
	switch r {
	case domain.ResultOK:
		if m.State() == domain.StateGoingDown {
			return "shutdown sequence started"
		}
		return "startup sequence started"
	case domain.ResultShutdown:
		return "shutdown sequence started"
	case domain.ResultNoOp:
		return "module already " + strings.ToLower(m.State().String())
	case domain.ResultWrongState:
		return fmt.Sprintf("not permitted while %s", m.State())
	case domain.ResultNotYet:
		return waitText(m, now)
	default:
		return fmt.Sprintf("unexpected result %d", r)
	}
}

func fixText(r domain.Result, m *domain.Module) string {
	switch r {
	case domain.ResultOK:
		return "error cleared, module " + strings.ToLower(m.State().String())
	case domain.ResultFailed:
		return "properties not at default: " + strings.Join(m.OffDefault(), ", ")
	case domain.ResultWrongState:
		return "module is not in error"
	default:
		return fmt.Sprintf("unexpected result %d", r)
	}
}

func propertyText(r domain.Result, property string, value bool, expected domain.Action, hasNext bool, m *domain.Module, now time.Time) string {
	switch r {
	case domain.ResultOK:
		return fmt.Sprintf("%s is %s", property, onOff(value))
	case domain.ResultNotFound:
		return "property not found"
	case domain.ResultWrongState:
		return fmt.Sprintf("not permitted while %s", m.State())
	case domain.ResultNotYet:
		return waitText(m, now)
	case domain.ResultWrongProperty:
		if !hasNext {
			return "sequence already complete, module in error"
		}
		return fmt.Sprintf("expected %q, module in error", actionText(expected))
	case domain.ResultWrongValue:
		return fmt.Sprintf("%s must be %s, module in error", property, onOff(expected.NeededState))
	default:
		return fmt.Sprintf("unexpected result %d", r)
	}
}

func checkText(r domain.CheckResult, m *domain.Module) string {
	return fmt.Sprintf("%s (%s)", r, m.State())
}
