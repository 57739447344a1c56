package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bazaarhq/bazaar/pkg/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NewClient connects to NATS and keeps reconnecting for as long as the process runs.
func NewClient(cfg config.NATSConfig) (*nats.Conn, error) {
	opts := []nats.Option{nats.Timeout(cfg.Timeout), nats.MaxReconnects(-1)}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	nc, err := nats.Connect(cfg.Url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func NewJetStreamContext(nc *nats.Conn) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return js, nil
}

// duplicateWindow is how long the stream remembers message IDs for deduplication.
const duplicateWindow = 10 * time.Minute

// EnsureStream creates the stream, or updates it when it already exists with other settings.
func EnsureStream(ctx context.Context, js jetstream.JetStream, name string, subjects ...string) (jetstream.Stream, error) {
	if name == "" || len(subjects) == 0 {
		return nil, errors.New("stream name and at least one subject are required")
	}
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       name,
		Subjects:   subjects,
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.WorkQueuePolicy,
		Duplicates: duplicateWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream %s: %w", name, err)
	}
	return stream, nil
}
