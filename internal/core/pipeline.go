package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jonathanlei/messagely/internal/gateway"
	"github.com/jonathanlei/messagely/internal/metrics"
)

// PipelineOptions bound the pipeline's two I/O phases.
type PipelineOptions struct {
	SendTimeout   time.Duration // cap on the gateway round trip
	InsertRetries uint64        // extra insert attempts after the first
	InsertBackoff time.Duration // constant delay between insert attempts
}

// Pipeline orchestrates a message send: resolve both phones, deliver through
// the gateway, then persist with the gateway's confirmation timestamp.
//
// The two phases are deliberately not one transaction: phase 1 (the gateway
// call) holds no store state and must succeed before phase 2 (the insert,
// the only mutation) begins. The insert is retried on store errors but the
// gateway is never re-invoked, so at most one SMS leaves per call.
type Pipeline struct {
	identity IdentityStore
	messages MessageStore
	gw       gateway.Client
	opt      PipelineOptions
	log      *slog.Logger
}

func NewPipeline(identity IdentityStore, messages MessageStore, gw gateway.Client, opt PipelineOptions, log *slog.Logger) *Pipeline {
	if opt.SendTimeout <= 0 {
		opt.SendTimeout = 10 * time.Second
	}
	if opt.InsertBackoff <= 0 {
		opt.InsertBackoff = 100 * time.Millisecond
	}
	return &Pipeline{identity: identity, messages: messages, gw: gw, opt: opt, log: log}
}

// SendMessage delivers body from one user to another and returns the stored
// record. A returned message has been both gateway-confirmed and durably
// inserted; on any failure before acceptance nothing is persisted.
func (p *Pipeline) SendMessage(ctx context.Context, from, to, body string) (*Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, InvalidInputf("message body must not be empty")
	}

	// Preconditions resolve before any network I/O.
	fromPhone, err := p.identity.FindPhone(ctx, from)
	if err != nil {
		return nil, err
	}
	toPhone, err := p.identity.FindPhone(ctx, to)
	if err != nil {
		return nil, err
	}

	conf, err := p.deliver(ctx, fromPhone, toPhone, body)
	if err != nil {
		return nil, err
	}

	return p.persist(ctx, from, to, body, conf)
}

// deliver is phase 1: exactly one gateway call, no durable side effect.
func (p *Pipeline) deliver(ctx context.Context, fromPhone, toPhone, body string) (gateway.Confirmation, error) {
	cctx, cancel := context.WithTimeout(ctx, p.opt.SendTimeout)
	defer cancel()

	start := time.Now()
	conf, err := p.gw.Send(cctx, fromPhone, toPhone, body)
	metrics.GatewaySendDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		var rej *gateway.RejectError
		if errors.As(err, &rej) {
			metrics.GatewaySendTotal.WithLabelValues("rejected").Inc()
			return gateway.Confirmation{}, &DeliveryError{Reason: rej.Reason, Code: rej.Code}
		}
		metrics.GatewaySendTotal.WithLabelValues("error").Inc()
		return gateway.Confirmation{}, &DeliveryError{Reason: "gateway unreachable: " + err.Error()}
	}

	metrics.GatewaySendTotal.WithLabelValues("sent").Inc()
	return conf, nil
}

// persist is phase 2: the only mutation. Bounded retry on store errors; an
// exhausted retry leaves a delivered SMS with no stored record, so the
// confirmation is logged loudly before the error surfaces.
func (p *Pipeline) persist(ctx context.Context, from, to, body string, conf gateway.Confirmation) (*Message, error) {
	var msg *Message
	backoff := retry.WithMaxRetries(p.opt.InsertRetries, retry.NewConstant(p.opt.InsertBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var ierr error
		msg, ierr = p.messages.Insert(ctx, from, to, body, conf.ConfirmedAt)
		if ierr != nil {
			metrics.InsertRetryTotal.Inc()
			return retry.RetryableError(ierr)
		}
		return nil
	})
	if err != nil {
		metrics.InsertLostTotal.Inc()
		p.log.Error("message delivered but not stored",
			"from", from, "to", to,
			"provider_id", conf.ProviderID,
			"confirmed_at", conf.ConfirmedAt,
			"err", err)
		return nil, err
	}
	return msg, nil
}
