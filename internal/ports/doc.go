// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the controller core and the outside
// world. They describe what the application needs from external systems
// without specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [Device]: Reads and commands the enabled bit of a module's hardware
//   - [Notifier]: Receives module states, properties and command output
//   - [StatusRepository]: Persists a snapshot of every module for observers
//   - [Recorder]: Records controller metrics
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters, internal/device,
// internal/metrics) implement them.
package ports
