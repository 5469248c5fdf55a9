package app

import "context"

// Database is satisfied by *sql.DB.
type Database interface {
	PingContext(ctx context.Context) error
	Close() error
}

// EventPublisher is satisfied by *nsq.Producer.
type EventPublisher interface {
	Publish(topic string, body []byte) error
}
