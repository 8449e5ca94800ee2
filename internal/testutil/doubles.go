package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Publisher is an in-memory share object store
type Publisher struct {
	faults
	mu      sync.Mutex
	objects map[string]string
}

// NewPublisher creates an empty publisher
func NewPublisher() *Publisher {
	return &Publisher{objects: make(map[string]string)}
}

func (p *Publisher) PutText(ctx context.Context, key, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.writeErr(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects[key] = body
	return nil
}

func (p *Publisher) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://shares.test/%s?expires=%d", key, int(ttl.Seconds())), nil
}

// Objects returns a copy of the stored objects by key
func (p *Publisher) Objects() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.objects))
	for k, v := range p.objects {
		out[k] = v
	}
	return out
}

// Push is one notification recorded by Notifier
type Push struct {
	DeviceToken string
	Title       string
	Body        string
}

// Notifier records pushes instead of sending them
type Notifier struct {
	faults
	mu     sync.Mutex
	pushes []Push
}

// NewNotifier creates a recording notifier
func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Notify(ctx context.Context, deviceToken, title, body string) error {
	if err := n.writeErr(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, Push{DeviceToken: deviceToken, Title: title, Body: body})
	return nil
}

// Pushes returns the recorded notifications in send order
func (n *Notifier) Pushes() []Push {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Push(nil), n.pushes...)
}
