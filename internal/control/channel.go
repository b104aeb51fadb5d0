// Package control is the single writer of the parameter store. Every
// runtime parameter change, whether from the operator panel or the HTTP
// monitor, arrives here as a named setter command.
package control

import (
	"context"
	"encoding/json"
	"fmt"

	"freeswim-tracker/internal/config"
	"freeswim-tracker/internal/logger"
)

const component = "Control"

// Command asks for one setter to be applied.
type Command struct {
	Name  string
	Value json.RawMessage
	reply chan error
}

// Observer is told about every applied or rejected command.
type Observer interface {
	SetterApplied(name string)
	SetterRejected(name string)
}

type nopObserver struct{}

func (nopObserver) SetterApplied(string)  {}
func (nopObserver) SetterRejected(string) {}

type Channel struct {
	store    *config.Store
	commands chan Command
	logger   logger.Logger
	observer Observer
}

func NewChannel(store *config.Store, queue int, log logger.Logger) *Channel {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if queue < 1 {
		queue = 1
	}
	return &Channel{
		store:    store,
		commands: make(chan Command, queue),
		logger:   log,
		observer: nopObserver{},
	}
}

func (c *Channel) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	c.observer = o
}

// Run applies commands in arrival order until ctx ends.
func (c *Channel) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.commands:
			cmd.reply <- c.apply(cmd)
		}
	}
}

// Submit queues a raw JSON value for the named setter and waits until it
// has been applied or rejected.
func (c *Channel) Submit(ctx context.Context, name string, value json.RawMessage) error {
	if _, ok := setters[name]; !ok {
		c.observer.SetterRejected(name)
		return fmt.Errorf("%w: %q", ErrUnknownSetter, name)
	}

	cmd := Command{Name: name, Value: value, reply: make(chan error, 1)}
	select {
	case c.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitValue is Submit for a Go value, encoded as JSON.
func (c *Channel) SubmitValue(ctx context.Context, name string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadValue, err)
	}
	return c.Submit(ctx, name, raw)
}

func (c *Channel) apply(cmd Command) error {
	set, ok := setters[cmd.Name]
	if !ok {
		c.observer.SetterRejected(cmd.Name)
		return fmt.Errorf("%w: %q", ErrUnknownSetter, cmd.Name)
	}

	if err := set(c.store, cmd.Value); err != nil {
		c.observer.SetterRejected(cmd.Name)
		c.logger.Warning(component, "setter rejected", map[string]interface{}{
			"setter": cmd.Name,
			"value":  string(cmd.Value),
			"error":  err.Error(),
		})
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}

	c.observer.SetterApplied(cmd.Name)
	c.logger.Debug(component, "setter applied", map[string]interface{}{
		"setter":  cmd.Name,
		"value":   string(cmd.Value),
		"version": c.store.Version(),
	})
	return nil
}
