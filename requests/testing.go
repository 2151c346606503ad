package requests

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"agrohub/events"
)

// Test doubles for the service's collaborators. Kept out of _test files so
// other packages can drive the engine in their own tests.

// StaticAgentDirectory is a fixed in-memory AgentDirectory.
type StaticAgentDirectory struct {
	mu     sync.Mutex
	agents map[primitive.ObjectID]*Agent
}

func NewStaticAgentDirectory() *StaticAgentDirectory {
	return &StaticAgentDirectory{agents: make(map[primitive.ObjectID]*Agent)}
}

func (d *StaticAgentDirectory) AddAgent(id primitive.ObjectID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agents[id] = &Agent{ID: id, Name: name}
}

func (d *StaticAgentDirectory) RemoveAgent(id primitive.ObjectID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.agents, id)
}

func (d *StaticAgentDirectory) FindActiveAgent(_ context.Context, id primitive.ObjectID) (*Agent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.agents[id], nil
}

// CaptureNotifier records published events for assertions.
type CaptureNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func NewCaptureNotifier() *CaptureNotifier { return &CaptureNotifier{} }

func (c *CaptureNotifier) Publish(_ context.Context, ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (c *CaptureNotifier) Events() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event(nil), c.events...)
}
