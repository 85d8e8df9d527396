package draftsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andressep95/session-service/internal/autosave"
	"github.com/andressep95/session-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const DefaultFlushTimeout = 30 * time.Second

// Remote is the server side of a synced draft.
type Remote interface {
	autosave.Saver
	GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error)
}

type Options struct {
	DraftPath      string
	DebounceDelay  time.Duration
	BackupInterval time.Duration
	// FlushTimeout bounds the wait for an in-flight save before the final
	// save on exit.
	FlushTimeout time.Duration
	Clock        clockwork.Clock
	Logger       logrus.FieldLogger
}

// Sync keeps the draft file saved through remote until ctx is cancelled, then
// flushes any unsaved edit. The server id is remembered in the sync state so a
// restart keeps updating the same session.
func Sync(ctx context.Context, remote Remote, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}

	st, err := LoadState(opts.DraftPath)
	if err != nil {
		return err
	}
	persisted := resume(ctx, remote, &st, log)

	var (
		mu    sync.Mutex
		sched *autosave.Scheduler
	)
	sched = autosave.New(remote, autosave.Options{
		DebounceDelay:  opts.DebounceDelay,
		BackupInterval: opts.BackupInterval,
		Clock:          opts.Clock,
		Logger:         log,
		SessionID:      st.SessionID,
		Persisted:      persisted,
		OnSuccess: func(savedAt time.Time) {
			id := sched.SessionID()
			if id == nil {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if st.SessionID != nil && *st.SessionID == *id {
				return
			}
			st.SessionID = id
			if err := SaveState(opts.DraftPath, st); err != nil {
				log.WithError(err).Error("Failed to record synced session id")
			}
		},
		Notify: func(n autosave.Notification) {
			entry := log.WithField("trigger", n.Trigger)
			if n.Level == autosave.NotifyError {
				entry.WithError(n.Err).Warn(n.Message)
				return
			}
			entry.Info(n.Message)
		},
	})

	watcher, err := NewWatcher(opts.DraftPath, sched, log)
	if err != nil {
		sched.Close()
		return err
	}

	runErr := watcher.Run(ctx)

	flushCtx, cancel := context.WithTimeout(context.Background(), opts.FlushTimeout)
	outcome := sched.Flush(flushCtx)
	cancel()
	switch outcome {
	case autosave.OutcomeSaved, autosave.OutcomeSkippedUnchanged:
	case autosave.OutcomeFailed:
		log.Warn("Final save before exit failed")
	default:
		log.WithField("outcome", outcome).Warn("Final save before exit did not persist the draft")
	}
	sched.Close()
	return runErr
}

// resume loads the synced session so unchanged content is not sent again. A
// session that no longer exists is forgotten and the next save creates a new one.
func resume(ctx context.Context, remote Remote, st *State, log logrus.FieldLogger) *autosave.Snapshot {
	if st.SessionID == nil {
		return nil
	}

	session, err := remote.GetSession(ctx, *st.SessionID)
	if err != nil {
		var kinded interface{ Kind() domain.ErrorKind }
		if errors.As(err, &kinded) && kinded.Kind() == domain.KindNotFound {
			log.WithField("session_id", *st.SessionID).Warn("Synced session no longer exists, a new one will be created")
			st.SessionID = nil
			return nil
		}
		log.WithError(err).Warn("Failed to load synced session, the first save will resend the draft")
		return nil
	}
	if session == nil {
		return nil
	}

	return &autosave.Snapshot{
		Title:     session.Title,
		Tags:      append([]string{}, session.Tags...),
		ConfigURL: session.ConfigURL,
	}
}
