// Package mock provides deterministic oracles for tests and for running the
// service without oracle credentials.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ai-debate-graph-service/internal/oracle"
)

// Handler produces the reply for one request. The returned value is
// round-tripped through JSON into the caller's destination, as a real
// provider's reply would be.
type Handler func(req oracle.Request) (any, error)

// Oracle dispatches requests to handlers by schema name. Unhandled schema
// names yield oracle.ErrNoParseableResult.
type Oracle struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string]int
}

// New creates an oracle with no handlers.
func New() *Oracle {
	return &Oracle{
		handlers: make(map[string]Handler),
		calls:    make(map[string]int),
	}
}

// On registers h for requests named name.
func (o *Oracle) On(name string, h Handler) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[name] = h
	return o
}

// Calls returns how many requests named name were received.
func (o *Oracle) Calls(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[name]
}

// Complete implements oracle.Oracle.
func (o *Oracle) Complete(ctx context.Context, req oracle.Request, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	o.calls[req.Name]++
	h := o.handlers[req.Name]
	o.mu.Unlock()

	if h == nil {
		return fmt.Errorf("mock oracle: no handler for %q: %w", req.Name, oracle.ErrNoParseableResult)
	}
	v, err := h(req)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mock oracle: %v: %w", err, oracle.ErrNoParseableResult)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("mock oracle: %v: %w", err, oracle.ErrNoParseableResult)
	}
	return nil
}

// Reply always answers with v.
func Reply(v any) Handler {
	return func(oracle.Request) (any, error) { return v, nil }
}

// Fail always answers with err.
func Fail(err error) Handler {
	return func(oracle.Request) (any, error) { return nil, err }
}

// Factory returns an oracle.Factory that ignores the credential and hands
// out o.
func Factory(o oracle.Oracle) oracle.Factory {
	return func(string) (oracle.Oracle, error) { return o, nil }
}
