/*
Package observability provides command.Listener implementations for auditing and
monitoring the command engine.

A command.Manager holds a single listener slot. Chain composes several listeners
into one, so logging and metrics can be attached together.
*/
package observability
