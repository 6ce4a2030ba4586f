package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// StreamName is the JetStream stream run events are stored in.
const StreamName = "PROSPECT_RUNS"

type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes run events to a JetStream subject.
type NATSPublisher struct {
	nc      *nats.Conn
	js      streamPublisher
	subject string
}

// NewNATSPublisher connects to url and makes sure the run stream exists.
func NewNATSPublisher(ctx context.Context, url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("prospect-agent"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, eris.Wrap(err, "events: connect to nats")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, eris.Wrap(err, "events: create jetstream context")
	}

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(sctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    30 * 24 * time.Hour,
	})
	if err != nil {
		// The stream may be managed elsewhere; publishing still works if it exists.
		zap.L().Warn("events: ensure stream failed", zap.String("stream", StreamName), zap.Error(err))
	}

	return &NATSPublisher{nc: nc, js: js, subject: subject}, nil
}

// Publish sends ev, deduplicated by run ID.
func (p *NATSPublisher) Publish(ctx context.Context, ev RunCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "events: marshal run completed")
	}

	var opts []jetstream.PublishOpt
	if ev.RunID != "" {
		opts = append(opts, jetstream.WithMsgID(ev.RunID))
	}
	if _, err := p.js.Publish(ctx, p.subject, data, opts...); err != nil {
		return eris.Wrapf(err, "events: publish to %s", p.subject)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return eris.Wrap(p.nc.Drain(), "events: drain")
}
