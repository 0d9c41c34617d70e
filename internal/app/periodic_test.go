package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingChecker struct {
	calls atomic.Int32
}

func (c *countingChecker) Check(context.Context) (bool, error) {
	c.calls.Add(1)
	return true, nil
}

func TestPeriodicCheck(t *testing.T) {
	checker := &countingChecker{}
	p, err := NewPeriodicCheck(checker, 20*time.Millisecond, mockLogger{})
	require.NoError(t, err)

	p.Start()
	require.Eventually(t, func() bool {
		return checker.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, p.Stop())

	after := checker.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, checker.calls.Load(), "no checks after Stop")
}
