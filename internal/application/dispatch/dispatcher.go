// Package dispatch fans one logical notification out to every
// (recipient, channel) pair and collects the per-pair results.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/school-notify/internal/channel"
	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/pkg/id"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 8
)

// Resolver looks up the routing view of a recipient id.
type Resolver interface {
	Resolve(ctx context.Context, recipientID string) (*domain.Recipient, error)
}

type Request struct {
	Type       string
	Recipients []string
	// Channels overrides the type's default channels when non-empty.
	Channels []domain.Channel
	Data     map[string]any
	// OriginID names the event being delivered. Re-dispatching the same origin
	// does not create a second inbox record. Generated when empty.
	OriginID string
}

type Deps struct {
	Registry    domain.TypeRegistry
	Senders     []channel.Sender
	Recipients  Resolver
	Observer    Observer
	Timeout     time.Duration
	Concurrency int
}

type Dispatcher struct {
	registry    domain.TypeRegistry
	senders     map[domain.Channel]channel.Sender
	recipients  Resolver
	observer    Observer
	timeout     time.Duration
	concurrency int
}

func New(deps Deps) *Dispatcher {
	d := &Dispatcher{
		registry:    deps.Registry,
		senders:     make(map[domain.Channel]channel.Sender, len(deps.Senders)),
		recipients:  deps.Recipients,
		observer:    deps.Observer,
		timeout:     deps.Timeout,
		concurrency: deps.Concurrency,
	}
	for _, s := range deps.Senders {
		d.senders[s.Channel()] = s
	}
	if d.observer == nil {
		d.observer = nopObserver{}
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.concurrency <= 0 {
		d.concurrency = DefaultConcurrency
	}
	return d
}

// Registry exposes the type table the dispatcher was built with.
func (d *Dispatcher) Registry() domain.TypeRegistry { return d.registry }

// Send delivers req to every recipient on its effective channels. Delivery
// failures are reported in the result; only an unknown type or an empty
// recipient list is returned as an error.
func (d *Dispatcher) Send(ctx context.Context, req Request) (*domain.DispatchResult, error) {
	def, ok := d.registry.Lookup(req.Type)
	if !ok {
		return nil, fmt.Errorf("%q: %w", req.Type, domain.ErrUnknownType)
	}
	recipients := dedupe(req.Recipients)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients: %w", domain.ErrBadRequest)
	}
	channels := def.Channels
	if len(req.Channels) > 0 {
		channels = req.Channels
	}
	originID := req.OriginID
	if originID == "" {
		originID = id.New()
	}

	payload := channel.Payload{
		Type:      req.Type,
		OriginID:  originID,
		Data:      req.Data,
		Important: def.Important,
	}

	perRecipient := make([][]domain.DeliveryResult, len(recipients))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, rid := range recipients {
		g.Go(func() error {
			perRecipient[i] = d.deliver(ctx, rid, channels, payload)
			return nil
		})
	}
	_ = g.Wait()

	res := &domain.DispatchResult{Results: make([]domain.DeliveryResult, 0, len(recipients)*len(channels))}
	for _, results := range perRecipient {
		for _, r := range results {
			res.Attempted++
			if r.Success {
				res.Succeeded++
			} else {
				res.Failed++
			}
			res.Results = append(res.Results, r)
		}
	}
	return res, nil
}

// deliver sends to one recipient. Non-database channels run concurrently; the
// database channel runs last so the inbox record carries their results.
func (d *Dispatcher) deliver(ctx context.Context, recipientID string, channels []domain.Channel, p channel.Payload) []domain.DeliveryResult {
	r, err := d.recipients.Resolve(ctx, recipientID)
	if err != nil {
		out := make([]domain.DeliveryResult, len(channels))
		for i, ch := range channels {
			res := channel.Failed(ch, recipientID, fmt.Errorf("resolve recipient: %w", err))
			d.observer.Failed(ctx, d.event(p, recipientID, ch), res)
			out[i] = res
		}
		return out
	}

	var effective []domain.Channel
	for _, ch := range channels {
		if r.Allows(ch) {
			effective = append(effective, ch)
		}
	}

	out := make([]domain.DeliveryResult, len(effective))
	dbIndex := -1
	var wg sync.WaitGroup
	for i, ch := range effective {
		if ch == domain.ChannelDatabase {
			dbIndex = i
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = d.sendOne(ctx, ch, r, p)
		}()
	}
	wg.Wait()

	if dbIndex >= 0 {
		withDeliveries := p
		for i, res := range out {
			if i != dbIndex {
				withDeliveries.Deliveries = append(withDeliveries.Deliveries, res)
			}
		}
		out[dbIndex] = d.sendOne(ctx, domain.ChannelDatabase, r, withDeliveries)
	}
	return out
}

func (d *Dispatcher) sendOne(ctx context.Context, ch domain.Channel, r *domain.Recipient, p channel.Payload) domain.DeliveryResult {
	e := d.event(p, r.ID, ch)
	d.observer.Sending(ctx, e)

	var res domain.DeliveryResult
	if s, ok := d.senders[ch]; ok {
		res = d.invoke(ctx, s, r, p)
	} else {
		res = channel.Failed(ch, r.ID, errors.New("no sender configured for channel"))
	}

	if res.Success {
		d.observer.Sent(ctx, e, res)
	} else {
		d.observer.Failed(ctx, e, res)
	}
	return res
}

// invoke bounds a sender call by the channel timeout and converts a panic
// into a failed result. A timed-out sender keeps running in the background
// until it observes its cancelled context.
func (d *Dispatcher) invoke(ctx context.Context, s channel.Sender, r *domain.Recipient, p channel.Payload) domain.DeliveryResult {
	ch := s.Channel()
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan domain.DeliveryResult, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				done <- channel.Failed(ch, r.ID, fmt.Errorf("sender panic: %v", v))
			}
		}()
		done <- s.Send(ctx, r, p)
	}()

	var res domain.DeliveryResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = channel.Failed(ch, r.ID, fmt.Errorf("%s send: %w", ch, ctx.Err()))
	}
	res.Channel = ch
	res.RecipientID = r.ID
	if res.Timestamp.IsZero() {
		res.Timestamp = time.Now().UTC()
	}
	return res
}

func (d *Dispatcher) event(p channel.Payload, recipientID string, ch domain.Channel) Event {
	return Event{Type: p.Type, OriginID: p.OriginID, RecipientID: recipientID, Channel: ch}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
