package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultWorkers = 4

// Scheduler wires the detector and dispatcher to their stores. One
// Scheduler serves both the ticker worker and the manual trigger endpoint.
type Scheduler struct {
	Treatments    TreatmentStore
	Medications   MedicationStore
	Intakes       IntakeStore
	Notifications NotificationStore
	Preferences   PreferenceStore
	Subscriptions SubscriptionStore
	Transport     PushTransport
	Logger        *slog.Logger
	Workers       int
}

// PassResult summarizes one scheduler pass. Serialized as JSON by the
// trigger endpoint.
type PassResult struct {
	StartedAt           time.Time `json:"started_at"`
	Success             bool      `json:"success"`
	TreatmentsChecked   int       `json:"treatments_checked"`
	DosesDue            int       `json:"doses_due"`
	RemindersSent       int       `json:"reminders_sent"`
	ExpirationAlerts    int       `json:"expiration_alerts"`
	LowStockAlerts      int       `json:"low_stock_alerts"`
	SubscriptionsPruned int       `json:"subscriptions_pruned"`
	Errors              []string  `json:"errors,omitempty"`
	DurationMS          int64     `json:"duration_ms"`
}

// Summary returns a human-readable one-liner for logs.
func (r *PassResult) Summary() string {
	return fmt.Sprintf(
		"treatments=%d due=%d sent=%d expiration=%d low_stock=%d pruned=%d errors=%d dur=%dms",
		r.TreatmentsChecked, r.DosesDue, r.RemindersSent,
		r.ExpirationAlerts, r.LowStockAlerts, r.SubscriptionsPruned,
		len(r.Errors), r.DurationMS)
}

// Run executes one complete scheduler pass: expiration alerts, low-stock
// alerts, then dose reminders. Each item is processed in isolation — a
// failure on one user's medication never blocks another's. Only a total
// failure to list treatments fails the pass.
func (s *Scheduler) Run(ctx context.Context, now time.Time) PassResult {
	start := time.Now()
	result := PassResult{StartedAt: now.UTC(), Success: true}
	var mu sync.Mutex

	s.runInventoryPasses(ctx, now, &result, &mu)
	s.runDosePass(ctx, now, &result, &mu)

	result.DurationMS = time.Since(start).Milliseconds()
	s.Logger.Info("Reminder pass complete", "summary", result.Summary())
	return result
}

// runInventoryPasses evaluates expiration and low-stock alerts for every
// tracked medication. A failure to list inventory degrades the pass (dose
// reminders still run) rather than failing it.
func (s *Scheduler) runInventoryPasses(ctx context.Context, now time.Time, result *PassResult, mu *sync.Mutex) {
	meds, err := s.Medications.ListTracked(ctx)
	if err != nil {
		s.Logger.Error("list medications failed", "error", err)
		mu.Lock()
		result.Errors = append(result.Errors, fmt.Sprintf("list medications: %v", err))
		mu.Unlock()
		return
	}

	prefs := s.prefsLoader(ctx)

	for _, med := range meds {
		s.guard(result, mu, "medication "+med.ID, func() error {
			p, err := prefs(med.UserID)
			if err != nil {
				return fmt.Errorf("preferences: %w", err)
			}

			exp, err := s.dispatcher().DispatchExpiration(ctx, med, p, now)
			if err != nil {
				return err
			}
			low, err := s.dispatcher().DispatchLowStock(ctx, med, p)
			if err != nil {
				return err
			}

			mu.Lock()
			result.ExpirationAlerts += exp.Sent
			result.LowStockAlerts += low.Sent
			result.SubscriptionsPruned += exp.Pruned + low.Pruned
			mu.Unlock()
			return nil
		})
	}
}

// runDosePass detects and dispatches due doses across all active
// treatments, fanning treatments out over a bounded worker pool.
func (s *Scheduler) runDosePass(ctx context.Context, now time.Time, result *PassResult, mu *sync.Mutex) {
	treatments, err := s.Treatments.ListActive(ctx, now)
	if err != nil {
		// Hard dependency failure: without the treatment list the pass
		// cannot do its job.
		s.Logger.Error("list active treatments failed", "error", err)
		mu.Lock()
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("list treatments: %v", err))
		mu.Unlock()
		return
	}

	mu.Lock()
	result.TreatmentsChecked = len(treatments)
	mu.Unlock()
	if len(treatments) == 0 {
		return
	}

	workers := s.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	if workers > len(treatments) {
		workers = len(treatments)
	}

	prefs := s.prefsLoader(ctx)
	d := s.dispatcher()

	ch := make(chan Treatment, len(treatments))
	for _, t := range treatments {
		ch <- t
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range ch {
				s.guard(result, mu, "treatment "+t.ID, func() error {
					due := DetectDue(ctx, now, t, s.Intakes, s.Logger)
					if len(due) == 0 {
						return nil
					}

					mu.Lock()
					result.DosesDue += len(due)
					mu.Unlock()

					p, err := prefs(t.UserID)
					if err != nil {
						return fmt.Errorf("preferences: %w", err)
					}

					for _, dd := range due {
						res, err := d.DispatchDose(ctx, dd, p)
						mu.Lock()
						result.RemindersSent += res.Sent
						result.SubscriptionsPruned += res.Pruned
						mu.Unlock()
						if err != nil {
							return err
						}
					}
					return nil
				})
			}
		}()
	}
	wg.Wait()
}

// guard runs fn with panic recovery and error collection, keeping failures
// scoped to a single item.
func (s *Scheduler) guard(result *PassResult, mu *sync.Mutex, item string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("panic while processing item", "item", item, "panic", r)
			mu.Lock()
			result.Errors = append(result.Errors, fmt.Sprintf("%s: panic: %v", item, r))
			mu.Unlock()
		}
	}()
	if err := fn(); err != nil {
		s.Logger.Warn("item failed", "item", item, "error", err)
		mu.Lock()
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", item, err))
		mu.Unlock()
	}
}

// prefsLoader returns a per-pass memoizing preference lookup. Not
// goroutine-safe per user entry; guarded by its own mutex since workers
// share it.
func (s *Scheduler) prefsLoader(ctx context.Context) func(userID string) (Preferences, error) {
	var mu sync.Mutex
	cache := make(map[string]Preferences)
	return func(userID string) (Preferences, error) {
		mu.Lock()
		defer mu.Unlock()
		if p, ok := cache[userID]; ok {
			return p, nil
		}
		p, err := s.Preferences.Get(ctx, userID)
		if err != nil {
			return Preferences{}, err
		}
		cache[userID] = p
		return p, nil
	}
}

func (s *Scheduler) dispatcher() *Dispatcher {
	return &Dispatcher{
		Notifications: s.Notifications,
		Subscriptions: s.Subscriptions,
		Transport:     s.Transport,
		Logger:        s.Logger,
	}
}
