package store

import (
	"context"
	"reflect"
	"sync"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/jobdash/internal/jobdash/metrics"
	"github.com/G-Research/jobdash/internal/jobdash/model"
)

const (
	fetchJobAction     = "fetchJob"
	createJobRunAction = "createJobRun"
)

// Store is the shared application state: every job fetched during the life of the process together with an
// error slot holding the last failed request per job.
//
// State is only changed by dispatching actions. Dispatched actions are applied one at a time by the reducer
// loop started with Run. Reads go through immutable snapshots (State) or subscriptions (Subscribe) and never
// block writers. Store is implemented on top of https://github.com/hashicorp/go-memdb, whose watch channels
// drive subscriptions.
type Store struct {
	db      *memdb.MemDB
	actions chan Action
	// Closed once the reducer loop has exited.
	stopped chan struct{}

	mu      sync.Mutex
	running bool
}

func New(actionBufferSize int) (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Store{
		db:      db,
		actions: make(chan Action, actionBufferSize),
		stopped: make(chan struct{}),
	}, nil
}

// Run applies dispatched actions until ctx is cancelled. Actions still queued at that point are applied
// before Run returns. Run may only be called once.
func (s *Store) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("store reducer loop is already running")
	}
	s.running = true
	s.mu.Unlock()

	defer close(s.stopped)
	log.Info("Store reducer loop started")
	for {
		select {
		case <-ctx.Done():
			s.drain()
			log.Info("Store reducer loop stopped")
			return nil
		case action := <-s.actions:
			s.apply(action)
		}
	}
}

func (s *Store) drain() {
	for {
		select {
		case action := <-s.actions:
			s.apply(action)
		default:
			return
		}
	}
}

func (s *Store) apply(action Action) {
	if err := s.Apply(action); err != nil {
		log.WithError(err).Errorf("Failed to apply %T for job %s", action, action.JobSpecId())
	}
}

// Dispatch queues action for the reducer loop. It returns false, dropping the action, if the loop has
// stopped.
func (s *Store) Dispatch(action Action) bool {
	select {
	case <-s.stopped:
		log.Warnf("Dropping %T for job %s: store has stopped", action, action.JobSpecId())
		return false
	default:
	}
	select {
	case s.actions <- action:
		return true
	case <-s.stopped:
		log.Warnf("Dropping %T for job %s: store has stopped", action, action.JobSpecId())
		return false
	}
}

// Apply runs the reducer for a single action in its own write transaction. It is used by the reducer loop;
// memdb allows only one write transaction at a time, so direct callers are serialized with the loop.
func (s *Store) Apply(action Action) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := reduce(txn, action); err != nil {
		return err
	}
	txn.Commit()
	metrics.StoreActionsCounter.WithLabelValues(actionName(action)).Inc()
	return nil
}

// State returns a consistent read-only snapshot of the current state.
func (s *Store) State() *State {
	return &State{txn: s.db.Txn(false)}
}

// Check reports an error once the reducer loop has stopped.
func (s *Store) Check() error {
	select {
	case <-s.stopped:
		return errors.New("store reducer loop has stopped")
	default:
		return nil
	}
}

// Subscribe returns a channel that receives the job's current value (nil while absent) and then every
// subsequent change to it. The channel is closed once ctx is done, which is how a subscriber tears down.
// A slow subscriber only ever misses intermediate values: it always receives the latest one.
func (s *Store) Subscribe(ctx context.Context, jobSpecId string) <-chan *model.Job {
	updates := make(chan *model.Job, 1)
	metrics.StoreSubscriptionsGauge.Inc()
	go func() {
		defer metrics.StoreSubscriptionsGauge.Dec()
		defer close(updates)

		first := true
		var last *model.Job
		for {
			watchCh, obj, err := s.db.Txn(false).FirstWatch(jobsTable, idIndex, jobSpecId)
			if err != nil {
				log.WithError(err).Errorf("Subscription to job %s failed", jobSpecId)
				return
			}
			job, _ := obj.(*model.Job)

			// Jobs are never modified in place, so an unchanged pointer means an unchanged job.
			if first || job != last {
				select {
				case updates <- job:
				case <-ctx.Done():
					return
				}
				first = false
				last = job
			}

			select {
			case <-watchCh:
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates
}

func actionName(action Action) string {
	t := reflect.TypeOf(action)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
