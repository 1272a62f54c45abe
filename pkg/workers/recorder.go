package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/cbodonnell/cloudflight/pkg/game/types"
	"github.com/cbodonnell/cloudflight/pkg/log"
	"github.com/cbodonnell/cloudflight/pkg/messages"
	"github.com/cbodonnell/cloudflight/pkg/repositories"
	"github.com/cbodonnell/cloudflight/pkg/state"
)

// DefaultRecordInterval is used when no interval is given
const DefaultRecordInterval = 10 * time.Second

// RecorderWorker is the flight recorder. It periodically writes the last
// published player table to the repository and persists join and leave
// records as they arrive. It never feeds anything back into the session.
type RecorderWorker struct {
	repository    repositories.Repository
	stateManager  state.StateManager
	sessionEvents <-chan types.SessionEvent
	interval      time.Duration
}

type NewRecorderWorkerOptions struct {
	Repository    repositories.Repository
	StateManager  state.StateManager
	SessionEvents <-chan types.SessionEvent
	Interval      time.Duration
}

// NewRecorderWorker creates a new RecorderWorker.
func NewRecorderWorker(opts NewRecorderWorkerOptions) *RecorderWorker {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultRecordInterval
	}
	return &RecorderWorker{
		repository:    opts.Repository,
		stateManager:  opts.StateManager,
		sessionEvents: opts.SessionEvents,
		interval:      interval,
	}
}

// Start blocks until ctx is done. Events still buffered at shutdown are flushed.
func (w *RecorderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flush(context.WithoutCancel(ctx))
			return
		case event, ok := <-w.sessionEvents:
			if !ok {
				w.sessionEvents = nil
				continue
			}
			w.saveSessionEvent(ctx, event)
		case t := <-ticker.C:
			if err := w.SaveSnapshot(ctx, t); err != nil {
				log.Error("Failed to record snapshot: %v", err)
			}
		}
	}
}

// SaveSnapshot serializes the current game state stamped with at and stores it.
func (w *RecorderWorker) SaveSnapshot(ctx context.Context, at time.Time) error {
	gameState, err := w.stateManager.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current game state: %v", err)
	}
	gameState.Timestamp = at.UnixMilli()

	data, err := messages.SerializeSnapshot(gameState)
	if err != nil {
		return err
	}

	if err := w.repository.SaveSnapshot(ctx, gameState.Timestamp, gameState.PlayerCount(), data); err != nil {
		return fmt.Errorf("failed to save snapshot: %v", err)
	}

	log.Trace("Recorded snapshot of %d players (%d bytes)", gameState.PlayerCount(), len(data))
	return nil
}

func (w *RecorderWorker) saveSessionEvent(ctx context.Context, event types.SessionEvent) {
	if err := w.repository.SaveSessionEvent(ctx, event); err != nil {
		log.Error("Failed to save %s event for player %s: %v", event.Kind, event.PlayerID, err)
	}
}

func (w *RecorderWorker) flush(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.sessionEvents:
			if !ok {
				return
			}
			w.saveSessionEvent(ctx, event)
		default:
			return
		}
	}
}
