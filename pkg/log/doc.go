// Package log provides a logging abstraction for shipctl components.
//
// This package defines a Logger interface that can be implemented by
// any logging library. A zerolog implementation is provided for the
// controller and a no-op logger for tests and embedding.
//
// # Usage
//
//	logger := log.NewZerologAdapter(os.Stderr, log.ParseLevel("debug"))
//	logger.Info("module state changed",
//		log.String("module", "Reactor"),
//		log.Stringer("state", state),
//	)
//
// Use With to bind fields shared by a component:
//
//	moduleLog := log.With(logger, log.String("module", name))
package log
