package ports

import "github.com/bft-labs/shipctl/pkg/log"

// Logger is the structured logger used by the application layer.
type Logger = log.Logger

// Field is a structured logging key-value pair.
type Field = log.Field

// Field constructors re-exported for application code.
var (
	String   = log.String
	Int      = log.Int
	Bool     = log.Bool
	Duration = log.Duration
	Time     = log.Time
	Stringer = log.Stringer
	Err      = log.Err
	Any      = log.Any
)
