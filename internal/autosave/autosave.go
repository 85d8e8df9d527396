// Package autosave decides when an editing surface should persist its draft.
//
// A Scheduler combines two policies: a debounce that fires once edits go quiet
// and a fixed-interval backup that fires regardless of activity. Both share one
// attempt path that skips empty titles, overlapping saves and snapshots equal to
// the last one persisted.
package autosave

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/andressep95/session-service/internal/metrics"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDebounceDelay  = 5 * time.Second
	DefaultBackupInterval = 30 * time.Second
)

// Snapshot is the in-memory candidate state of the session being edited.
type Snapshot struct {
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	ConfigURL string   `json:"json_file_url"`
}

func (s Snapshot) equal(o Snapshot) bool {
	if s.Title != o.Title || s.ConfigURL != o.ConfigURL || len(s.Tags) != len(o.Tags) {
		return false
	}
	for i := range s.Tags {
		if s.Tags[i] != o.Tags[i] {
			return false
		}
	}
	return true
}

// key is the serialized form compared against the persisted baseline. It never
// returns "", which is the "nothing persisted yet" sentinel.
func (s Snapshot) key() string {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(Snapshot{Title: s.Title, Tags: tags, ConfigURL: s.ConfigURL})
	return string(b)
}

func (s Snapshot) clone() Snapshot {
	if s.Tags != nil {
		s.Tags = append([]string(nil), s.Tags...)
	}
	return s
}

// Saver persists a snapshot. id is nil until the first successful create; the
// returned id is adopted for every later save.
type Saver interface {
	SaveDraft(ctx context.Context, id *uuid.UUID, snap Snapshot) (uuid.UUID, error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, id *uuid.UUID, snap Snapshot) (uuid.UUID, error)

func (f SaverFunc) SaveDraft(ctx context.Context, id *uuid.UUID, snap Snapshot) (uuid.UUID, error) {
	return f(ctx, id, snap)
}

type Trigger string

const (
	TriggerDebounce Trigger = "debounce"
	TriggerBackup   Trigger = "backup"
	TriggerManual   Trigger = "manual"
)

type Outcome string

const (
	OutcomeSaved             Outcome = "saved"
	OutcomeFailed            Outcome = "failed"
	OutcomeSkippedEmptyTitle Outcome = "skipped_empty_title"
	OutcomeSkippedInFlight   Outcome = "skipped_in_flight"
	OutcomeSkippedUnchanged  Outcome = "skipped_unchanged"
	OutcomeSkippedClosed     Outcome = "skipped_closed"
)

type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
)

// Notification is a user-facing message about a debounce or manual save.
// Backup saves stay silent.
type Notification struct {
	Level   NotificationLevel
	Trigger Trigger
	Message string
	Err     error
}

type Options struct {
	DebounceDelay  time.Duration
	BackupInterval time.Duration
	Clock          clockwork.Clock
	Logger         logrus.FieldLogger

	// SessionID and Persisted resume an existing session: saves update it and
	// nothing is sent until the content differs from Persisted.
	SessionID *uuid.UUID
	Persisted *Snapshot

	// Callbacks are delivered one at a time, in the order the attempts
	// finished. They must not call Save, Flush or Close.
	OnSuccess func(savedAt time.Time)
	OnError   func(err error)
	Notify    func(n Notification)
	OnAttempt func(trigger Trigger, outcome Outcome)
}

// Scheduler owns the timers and guards for one editing surface. All state is
// behind mu; the saver is always called without holding it. deliver serializes
// callbacks and is always taken before mu.
type Scheduler struct {
	saver Saver
	opts  Options
	clock clockwork.Clock
	log   logrus.FieldLogger

	mu        sync.Mutex
	latest    Snapshot
	hasLatest bool
	baseline  string
	id        *uuid.UUID
	inFlight  bool
	idle      chan struct{}
	closed    bool
	debounce  clockwork.Timer

	deliver sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler and starts its backup ticker. Call Close when the
// editing surface goes away.
func New(saver Saver, opts Options) *Scheduler {
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.BackupInterval <= 0 {
		opts.BackupInterval = DefaultBackupInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		saver:  saver,
		opts:   opts,
		clock:  opts.Clock,
		log:    opts.Logger.WithField("component", "autosave"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if opts.SessionID != nil {
		id := *opts.SessionID
		s.id = &id
	}
	if opts.Persisted != nil {
		s.latest = opts.Persisted.clone()
		s.hasLatest = true
		s.baseline = s.latest.key()
	}

	// created here so a fake clock sees it before New returns
	ticker := s.clock.NewTicker(opts.BackupInterval)
	go s.backupLoop(ticker)

	return s
}

// Observe records the latest snapshot. A changed snapshot restarts the
// debounce timer; an identical one leaves the pending timer alone.
func (s *Scheduler) Observe(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.hasLatest && s.latest.equal(snap) {
		return
	}

	s.latest = snap.clone()
	s.hasLatest = true

	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = s.clock.AfterFunc(s.opts.DebounceDelay, func() {
		s.attempt(s.ctx, TriggerDebounce)
	})
}

// Save runs an attempt right away, with notifications, and reports what happened.
func (s *Scheduler) Save(ctx context.Context) Outcome {
	return s.attempt(ctx, TriggerManual)
}

// Flush waits for a save already in flight, then runs a manual attempt so the
// latest snapshot is persisted. If ctx ends first it returns
// OutcomeSkippedInFlight.
func (s *Scheduler) Flush(ctx context.Context) Outcome {
	for {
		s.mu.Lock()
		busy, idle := s.inFlight, s.idle
		s.mu.Unlock()

		if busy {
			select {
			case <-idle:
			case <-ctx.Done():
				return OutcomeSkippedInFlight
			}
			continue
		}

		if outcome := s.attempt(ctx, TriggerManual); outcome != OutcomeSkippedInFlight {
			return outcome
		}
	}
}

// SessionID returns the id of the persisted session, or nil before the first
// successful create.
func (s *Scheduler) SessionID() *uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == nil {
		return nil
	}
	id := *s.id
	return &id
}

// Close stops both timers. No attempt starts afterwards, but a save already in
// flight finishes and its result is still applied. Close waits for the backup
// loop, so calling it from a callback deadlocks.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.mu.Unlock()

	s.cancel()
	<-s.done
}

func (s *Scheduler) backupLoop(ticker clockwork.Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.Chan():
			s.attempt(s.ctx, TriggerBackup)
		}
	}
}

func (s *Scheduler) attempt(ctx context.Context, trigger Trigger) Outcome {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return s.skip(trigger, OutcomeSkippedClosed)
	case strings.TrimSpace(s.latest.Title) == "":
		s.mu.Unlock()
		return s.skip(trigger, OutcomeSkippedEmptyTitle)
	case s.inFlight:
		s.mu.Unlock()
		return s.skip(trigger, OutcomeSkippedInFlight)
	}

	snap := s.latest.clone()
	key := snap.key()
	if key == s.baseline {
		s.mu.Unlock()
		return s.skip(trigger, OutcomeSkippedUnchanged)
	}

	s.inFlight = true
	s.idle = make(chan struct{})
	var id *uuid.UUID
	if s.id != nil {
		v := *s.id
		id = &v
	}
	s.mu.Unlock()

	started := s.clock.Now()
	savedID, err := s.save(context.WithoutCancel(ctx), id, snap)
	completedAt := s.clock.Now()
	metrics.AutosaveDuration.Observe(completedAt.Sub(started).Seconds())

	// taken before the guard is released so callbacks keep attempt order
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	s.inFlight = false
	close(s.idle)
	if err == nil {
		s.id = &savedID
		s.baseline = key
	}
	s.mu.Unlock()

	silent := trigger == TriggerBackup
	if err != nil {
		s.log.WithError(err).WithField("trigger", trigger).Warn("Draft save failed")
		if !silent {
			s.notify(Notification{Level: NotifyError, Trigger: trigger, Message: "Failed to auto-save draft", Err: err})
		}
		if s.opts.OnError != nil {
			s.opts.OnError(err)
		}
		return s.report(trigger, OutcomeFailed)
	}

	s.log.WithFields(logrus.Fields{"trigger": trigger, "session_id": savedID}).Debug("Draft saved")
	if !silent {
		s.notify(Notification{Level: NotifySuccess, Trigger: trigger, Message: "Draft auto-saved successfully"})
	}
	if s.opts.OnSuccess != nil {
		s.opts.OnSuccess(completedAt)
	}
	return s.report(trigger, OutcomeSaved)
}

// save shields the scheduler from a panicking saver so the in-flight guard is
// always released.
func (s *Scheduler) save(ctx context.Context, id *uuid.UUID, snap Snapshot) (savedID uuid.UUID, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return s.saver.SaveDraft(ctx, id, snap)
}

func (s *Scheduler) notify(n Notification) {
	if s.opts.Notify != nil {
		s.opts.Notify(n)
	}
}

func (s *Scheduler) skip(trigger Trigger, outcome Outcome) Outcome {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	return s.report(trigger, outcome)
}

// report must be called with deliver held.
func (s *Scheduler) report(trigger Trigger, outcome Outcome) Outcome {
	metrics.AutosaveAttemptsTotal.WithLabelValues(string(trigger), string(outcome)).Inc()
	if s.opts.OnAttempt != nil {
		s.opts.OnAttempt(trigger, outcome)
	}
	return outcome
}
