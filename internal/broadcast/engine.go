package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/history"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/metrics"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/notify"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/signal"
)

// Status is a delivery outcome. Filter rejections are SKIPPED, never FAILED.
type Status string

const (
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// Record is one (signal, subscriber) delivery outcome. SKIPPED records carry an
// empty SubscriberID: rejection happens before fan-out, once per signal.
type Record struct {
	Signal       signal.Signal
	SubscriberID string
	Status       Status
	Reason       string
	SentAt       time.Time
	Preview      notify.Preview
}

// Options tunes delivery parallelism and retry behaviour.
type Options struct {
	Workers    int
	MaxRetries int
	Timeout    time.Duration
	Backoff    time.Duration
	Template   notify.Template
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Backoff <= 0 {
		o.Backoff = 500 * time.Millisecond
	}
	if o.Template == "" {
		o.Template = notify.TemplateDetailed
	}
	return o
}

// Engine composes filter policy, rate limiter, registry, and transport to fan a
// qualified signal out to every active subscriber.
type Engine struct {
	registry  *Registry
	limiter   RateLimiter
	transport notify.Transport
	store     history.Store
	opts      Options
	log       zerolog.Logger

	mu   sync.Mutex
	seen map[string]map[string]struct{} // signal ID -> delivered subscriber IDs
}

// NewEngine wires the fan-out pipeline. The store receives one entry per record.
func NewEngine(registry *Registry, limiter RateLimiter, transport notify.Transport, store history.Store, opts Options, log zerolog.Logger) *Engine {
	return &Engine{
		registry:  registry,
		limiter:   limiter,
		transport: transport,
		store:     store,
		opts:      opts.normalized(),
		log:       log,
		seen:      make(map[string]map[string]struct{}),
	}
}

// Broadcast runs the ordered filter pipeline, then delivers to each active
// subscriber independently with bounded parallelism. One subscriber's failure never
// blocks or rolls back delivery to the others.
func (e *Engine) Broadcast(ctx context.Context, sig signal.Signal, policy Policy) ([]Record, error) {
	if reason := policy.Evaluate(sig); reason != "" {
		rec := e.skip(ctx, sig, policy, reason)
		return []Record{rec}, nil
	}

	// nothing pending means a re-broadcast: it must neither charge the rate
	// limiter nor emit new records
	targets := e.pendingSubscribers(sig.ID)
	if len(targets) == 0 {
		return nil, nil
	}

	allowed, err := e.limiter.Allow(ctx, time.Now().UTC(), policy.MaxPerHour)
	if err != nil {
		// infra noise from a shared limiter must not stall the pipeline
		e.log.Warn().Err(err).Msg("rate limiter unavailable, allowing broadcast")
		allowed = true
	}
	if !allowed {
		rec := e.skip(ctx, sig, policy, SkipRateLimit)
		return []Record{rec}, nil
	}

	preview := policy.Preview(sig)
	text := notify.FormatSignal(e.opts.Template, sig, preview)

	records := make([]Record, len(targets))
	sem := make(chan struct{}, e.opts.Workers)
	var wg sync.WaitGroup
	for i, sub := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sub Subscriber) {
			defer wg.Done()
			defer func() { <-sem }()
			records[i] = e.deliver(ctx, sig, sub, text, preview)
		}(i, sub)
	}
	wg.Wait()

	for _, rec := range records {
		e.markSeen(sig.ID, rec.SubscriberID)
		e.persist(ctx, rec)
	}
	return records, nil
}

// Stats aggregates the full record history.
func (e *Engine) Stats(ctx context.Context) (history.Stats, error) {
	entries, err := e.store.Scan(ctx)
	if err != nil {
		return history.Stats{}, err
	}
	return history.Aggregate(entries), nil
}

// pendingSubscribers filters out subscribers this signal was already recorded for.
func (e *Engine) pendingSubscribers(signalID string) []Subscriber {
	active := e.registry.Active()
	e.mu.Lock()
	defer e.mu.Unlock()
	delivered := e.seen[signalID]
	if delivered == nil {
		return active
	}
	pending := active[:0]
	for _, sub := range active {
		if _, ok := delivered[sub.ID]; !ok {
			pending = append(pending, sub)
		}
	}
	return pending
}

func (e *Engine) markSeen(signalID, subscriberID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seen[signalID] == nil {
		e.seen[signalID] = make(map[string]struct{})
	}
	e.seen[signalID][subscriberID] = struct{}{}
}

// deliver attempts one subscriber with bounded retries and a per-attempt timeout.
// A canceled run context stops further retries but never aborts the attempt in
// flight; each attempt completes or times out on its own deadline.
func (e *Engine) deliver(ctx context.Context, sig signal.Signal, sub Subscriber, text string, preview notify.Preview) Record {
	sendCtx := context.WithoutCancel(ctx)
	var lastErr error
	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(e.opts.Backoff * time.Duration(attempt)):
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
		}
		attemptCtx, cancel := context.WithTimeout(sendCtx, e.opts.Timeout)
		lastErr = e.transport.Send(attemptCtx, sub.ID, text)
		cancel()
		if lastErr == nil {
			metrics.DeliveriesTotal.WithLabelValues(string(StatusSent)).Inc()
			return Record{Signal: sig, SubscriberID: sub.ID, Status: StatusSent, SentAt: time.Now().UTC(), Preview: preview}
		}
		if ctx.Err() != nil {
			break
		}
	}

	metrics.DeliveriesTotal.WithLabelValues(string(StatusFailed)).Inc()
	e.log.Warn().Str("subscriber", sub.ID).Str("symbol", sig.Symbol).Err(lastErr).Msg("delivery failed")
	return Record{
		Signal:       sig,
		SubscriberID: sub.ID,
		Status:       StatusFailed,
		Reason:       lastErr.Error(),
		SentAt:       time.Now().UTC(),
		Preview:      preview,
	}
}

// skip records a once-per-signal rejection.
func (e *Engine) skip(ctx context.Context, sig signal.Signal, policy Policy, reason string) Record {
	metrics.DeliveriesTotal.WithLabelValues(string(StatusSkipped)).Inc()
	e.log.Debug().Str("symbol", sig.Symbol).Str("reason", reason).Msg("signal skipped")
	rec := Record{
		Signal:  sig,
		Status:  StatusSkipped,
		Reason:  reason,
		SentAt:  time.Now().UTC(),
		Preview: policy.Preview(sig),
	}
	e.persist(ctx, rec)
	return rec
}

// persist appends the record to the history store. Store trouble is logged, never
// allowed to affect other deliveries.
func (e *Engine) persist(ctx context.Context, rec Record) {
	entry := history.Entry{
		Ts:         rec.SentAt,
		Symbol:     rec.Signal.Symbol,
		Direction:  string(rec.Signal.Direction),
		Price:      rec.Signal.Price,
		Confidence: rec.Signal.Confidence,
		TakeProfit: rec.Preview.TakeProfit,
		StopLoss:   rec.Preview.StopLoss,
		Status:     string(rec.Status),
		Recipient:  rec.SubscriberID,
	}
	if err := e.store.Append(ctx, entry); err != nil {
		e.log.Error().Err(err).Msg("failed to persist broadcast record")
	}
}
