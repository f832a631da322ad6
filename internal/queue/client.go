package queue

import "context"

// Client publishes export jobs. The SQS client is the production implementation.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, msg Message) error

func (f ClientFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
