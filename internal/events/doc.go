// Package events provides types and interfaces for an event-driven architecture.
//
// The task registry publishes a TaskEvent for every lifecycle transition without
// knowing who listens. Handlers such as the realtime broadcaster subscribe through
// an EventEmitter, which keeps the registry free of any transport dependency.
//
// The primary components are:
// - TaskEvent: A snapshot of a task taken at the moment it changed status
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
