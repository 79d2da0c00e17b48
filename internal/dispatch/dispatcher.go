// Package dispatch delivers due reminders.
//
// A single periodic loop scans the store for due-and-pending reminders,
// routes each to its channel adapter, and marks it delivered on success.
// Delivery is at-least-once: a failed send stays pending and is retried
// on the next cycle.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"remindbot/internal/storage"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type Config struct {
	Schedule    Schedule
	RatePerSec  int           // outbound send rate limit; <=0 disables
	SendTimeout time.Duration // per-delivery timeout; 0 means default
}

const defaultSendTimeout = 30 * time.Second

type Dispatcher struct {
	store    storage.Store
	registry *transport.Registry
	log      logx.Logger

	sched       Schedule
	limiter     *rate.Limiter
	sendTimeout time.Duration

	// now is injected so cycles resolve "due" against a controlled
	// reference instant in tests.
	now func() time.Time

	// inFlight guards against overlapping cycles: a tick that fires while
	// a cycle is still running is skipped, not queued.
	inFlight atomic.Bool
	wg       sync.WaitGroup
}

func New(cfg Config, store storage.Store, registry *transport.Registry, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	sched := cfg.Schedule
	if sched.Kind == SpecInterval && sched.Every <= 0 && sched.Cron == nil {
		sched = DefaultSchedule()
	}
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Dispatcher{
		store:       store,
		registry:    registry,
		log:         log,
		sched:       sched,
		limiter:     limiter,
		sendTimeout: timeout,
		now:         time.Now,
	}
}

// SetClock overrides the wall clock (tests).
func (d *Dispatcher) SetClock(now func() time.Time) {
	if now != nil {
		d.now = now
	}
}

// Run drives dispatcher cycles until ctx is done, then waits for an
// in-flight cycle to finish its current delivery.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("dispatcher started",
		logx.String("schedule", d.sched.Source),
	)
	defer d.wg.Wait()

	timer := time.NewTimer(time.Until(d.sched.next(d.now())))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopping")
			return
		case <-timer.C:
		}

		if d.inFlight.CompareAndSwap(false, true) {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				defer d.inFlight.Store(false)
				d.runCycle(ctx, d.now())
			}()
		} else {
			// Previous cycle still running (slow store or channel);
			// skip this tick rather than scan concurrently.
			d.log.Warn("cycle still in flight; skipping tick")
		}

		timer.Reset(time.Until(d.sched.next(d.now())))
	}
}

// RunCycle executes one scan-and-deliver pass at the given instant.
// It returns the number of reminders marked delivered. A second caller
// while a cycle is in flight gets (0, false).
func (d *Dispatcher) RunCycle(ctx context.Context, now time.Time) (int, bool) {
	if !d.inFlight.CompareAndSwap(false, true) {
		return 0, false
	}
	defer d.inFlight.Store(false)
	return d.runCycle(ctx, now), true
}

func (d *Dispatcher) runCycle(ctx context.Context, now time.Time) int {
	due, err := d.store.FindDuePending(ctx, now)
	if err != nil {
		// Store unavailable: nothing is lost, the next tick retries.
		d.log.Error("due-reminder query failed", logx.Err(err))
		return 0
	}
	if len(due) == 0 {
		return 0
	}
	d.log.Debug("due reminders found", logx.Int("count", len(due)))

	delivered := 0
	for _, r := range due {
		// Stop between deliveries on shutdown; the current send is
		// never interrupted mid-flight (see deliver).
		if ctx.Err() != nil {
			break
		}
		if d.deliver(ctx, r) {
			delivered++
		}
	}
	return delivered
}

// deliver sends one reminder and marks it delivered on success.
// Returning false leaves the reminder pending for the next cycle.
func (d *Dispatcher) deliver(ctx context.Context, r storage.Reminder) bool {
	adapter, err := d.registry.For(r.Recipient)
	if err != nil {
		// Unroutable recipient: keep it pending and complain. A later
		// deploy registering the channel will pick it up.
		d.log.Warn("no adapter for recipient", logx.Int64("id", r.ID), logx.String("recipient", r.Recipient), logx.Err(err))
		return false
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return false
		}
	}

	// The send itself is decoupled from the run context so shutdown lets
	// the in-flight delivery complete, bounded by its own timeout.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
	defer cancel()
	if err := adapter.SendText(sctx, r.Recipient, DeliveryText(r.Task)); err != nil {
		d.log.Warn("delivery failed; will retry next cycle", logx.Int64("id", r.ID), logx.String("recipient", r.Recipient), logx.Err(err))
		return false
	}

	if err := d.store.MarkDelivered(sctx, r.ID); err != nil {
		// The send went out but the flag flip failed; the next cycle
		// re-sends. Duplicates are acceptable, lost reminders are not.
		d.log.Error("marking delivered failed", logx.Int64("id", r.ID), logx.Err(err))
		return false
	}

	d.log.Info("reminder delivered", logx.Int64("id", r.ID), logx.String("recipient", r.Recipient), logx.Duration("lag", d.now().Sub(r.DueAt)))
	return true
}

// DeliveryText renders the message sent when a reminder fires.
func DeliveryText(task string) string {
	return "⏰ REMINDER: " + task
}
