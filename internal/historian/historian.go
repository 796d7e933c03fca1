// internal/historian/historian.go is an asynchronous historian that pops action
// records from a Redis queue and persists them in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nuno-online/nuno/internal/game"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sink persists action records.
type Sink interface {
	WriteBatch(ctx context.Context, recs []game.ActionRecord) error
	// MarkAbandoned flags an in-progress session that stopped producing actions.
	MarkAbandoned(ctx context.Context, sessionID uuid.UUID) error
}

// Options tune batching and inactivity detection.
type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration
	// PopTimeout bounds each blocking pop so shutdown is noticed promptly.
	PopTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.Queue == "" {
		o.Queue = "nuno_actions"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.FlushDelay <= 0 {
		o.FlushDelay = 500 * time.Millisecond
	}
	if o.Inactivity <= 0 {
		o.Inactivity = 10 * time.Minute
	}
	if o.PopTimeout <= 0 {
		o.PopTimeout = time.Second
	}
}

// Historian drains the action queue into a Sink.
type Historian struct {
	rdb  *redis.Client
	sink Sink
	opts Options

	batchMu sync.Mutex
	batch   []game.ActionRecord

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time
}

func New(rdb *redis.Client, sink Sink, opts Options) *Historian {
	opts.setDefaults()
	return &Historian{
		rdb:          rdb,
		sink:         sink,
		opts:         opts,
		batch:        make([]game.ActionRecord, 0, opts.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run reads the queue and checks for inactive sessions until ctx is done. The
// pending batch is flushed on the way out.
func (h *Historian) Run(ctx context.Context) error {
	log.WithField("queue", h.opts.Queue).Info("historian started")
	defer log.Info("historian shutting down")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.readLoop(ctx) })
	g.Go(func() error { return h.inactivityLoop(ctx) })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	h.flush(flushCtx)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (h *Historian) readLoop(ctx context.Context) error {
	ticker := time.NewTicker(h.opts.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.flush(ctx)
		default:
			res, err := h.rdb.BLPop(ctx, h.opts.PopTimeout, h.opts.Queue).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue
				}
				log.WithError(err).Error("BLPop failed")
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var rec game.ActionRecord
			if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
				log.WithError(err).Warn("invalid action record")
				continue
			}
			h.touch(rec.SessionID, time.Now())
			h.append(ctx, rec)
		}
	}
}

// append adds a record to the batch and flushes once the threshold is reached.
func (h *Historian) append(ctx context.Context, rec game.ActionRecord) {
	h.batchMu.Lock()
	h.batch = append(h.batch, rec)
	full := len(h.batch) >= h.opts.BatchSize
	h.batchMu.Unlock()

	if full {
		h.flush(ctx)
	}
}

func (h *Historian) flush(ctx context.Context) {
	h.batchMu.Lock()
	if len(h.batch) == 0 {
		h.batchMu.Unlock()
		return
	}
	pending := make([]game.ActionRecord, len(h.batch))
	copy(pending, h.batch)
	h.batch = h.batch[:0]
	h.batchMu.Unlock()

	if err := h.sink.WriteBatch(ctx, pending); err != nil {
		log.WithError(err).WithField("count", len(pending)).Error("failed to flush actions")
		return
	}
	log.Debugf("Flushed %d actions.", len(pending))
}

func (h *Historian) touch(sessionID uuid.UUID, at time.Time) {
	h.activityMu.Lock()
	defer h.activityMu.Unlock()
	h.lastActivity[sessionID] = at
}

func (h *Historian) inactivityLoop(ctx context.Context) error {
	interval := h.opts.Inactivity / 10
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			h.sweepInactive(ctx, now)
		}
	}
}

// sweepInactive marks every session idle for longer than the inactivity window.
func (h *Historian) sweepInactive(ctx context.Context, now time.Time) {
	h.activityMu.Lock()
	var idle []uuid.UUID
	for id, last := range h.lastActivity {
		if now.Sub(last) > h.opts.Inactivity {
			idle = append(idle, id)
			delete(h.lastActivity, id)
		}
	}
	h.activityMu.Unlock()

	for _, id := range idle {
		if err := h.sink.MarkAbandoned(ctx, id); err != nil {
			log.WithError(err).WithField("session", id).Warn("failed to mark session abandoned")
			continue
		}
		log.WithField("session", id).Info("marked session abandoned due to inactivity")
	}
}
