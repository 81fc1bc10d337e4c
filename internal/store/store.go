package store

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/mercury/internal/atom"
	"github.com/cuemby/mercury/internal/btree"
	"github.com/cuemby/mercury/internal/merr"
	"github.com/cuemby/mercury/internal/stats"
	"github.com/cuemby/mercury/internal/telemetry"
	"github.com/cuemby/mercury/internal/trigram"
	"github.com/cuemby/mercury/internal/wal"
	"github.com/cuemby/mercury/pkg/quad"
)

// State is a Store's lifecycle position.
type State int

const (
	StateNew State = iota
	StateReady
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateReady:
		return "Ready"
	case StateDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// Options configures a Store at open time.
type Options struct {
	Atom     atom.Options
	StatsTopN int
}

// Store is Mercury's bitemporal quad store facade (see doc.go).
type Store struct {
	mu    sync.RWMutex
	dir   string
	state State

	atoms *atom.Store
	idx   [4]*btree.Tree // indexed by btree.ColumnOrder
	log   *wal.Log
	stats *stats.Statistics
	text  *trigram.Index

	zlog zerolog.Logger
}

var indexFiles = [4]string{"gspo.db", "gpos.db", "gosp.db", "tgsp.db"}
var indexOrders = [4]btree.ColumnOrder{btree.GSPO, btree.GPOS, btree.GOSP, btree.TGSP}

// Open opens or creates a store rooted at dir, replaying WAL recovery
// into any index that hasn't already durably applied a given tx id.
func Open(dir string, opts Options) (*Store, error) {
	atoms, err := atom.Open(dir, opts.Atom)
	if err != nil {
		return nil, err
	}

	var idx [4]*btree.Tree
	for i, order := range indexOrders {
		t, err := btree.Open(dir, indexFiles[i], order)
		if err != nil {
			_ = atoms.Close()
			for j := 0; j < i; j++ {
				_ = idx[j].Close()
			}
			return nil, err
		}
		idx[i] = t
	}

	log, err := wal.Open(dir)
	if err != nil {
		_ = atoms.Close()
		for _, t := range idx {
			_ = t.Close()
		}
		return nil, err
	}

	text, err := trigram.Open(dir)
	if err != nil {
		_ = atoms.Close()
		for _, t := range idx {
			_ = t.Close()
		}
		_ = log.Close()
		return nil, err
	}

	s := &Store{
		dir:   dir,
		atoms: atoms,
		idx:   idx,
		log:   log,
		stats: stats.New(opts.StatsTopN),
		text:  text,
		zlog:  telemetry.WithStore(telemetry.WithComponent("store"), filepath.Base(dir)),
	}
	atoms.SetDebugLock(&s.mu)

	if err := s.recover(); err != nil {
		_ = s.closeAll()
		return nil, err
	}

	if err := s.stats.Refresh(s.idx[btree.GPOS], int64(s.log.CurrentTxID())); err != nil {
		_ = s.closeAll()
		return nil, err
	}

	s.state = StateReady
	return s, nil
}

// recover replays every WAL record since the last checkpoint into each
// index that hasn't already applied its tx id. If any record was applied,
// it then flushes every index and writes a WAL checkpoint.
func (s *Store) recover() error {
	records := s.log.ReplayUncommitted()
	if len(records) > 0 {
		s.zlog.Info().Int("records", len(records)).Msg("replaying uncheckpointed WAL records")
	}
	applied := false
	for _, rec := range records {
		switch rec.Op {
		case wal.OpAdd:
			e := btree.Entry{
				Graph: rec.Graph, Subject: rec.Subject, Predicate: rec.Predicate, Object: rec.Object,
				ValidFrom: rec.ValidFrom, ValidTo: rec.ValidTo, TxTime: int64(rec.TxID),
				CreatedAt: int64(rec.TxID), ModifiedAt: int64(rec.TxID), Version: 1,
			}
			for _, t := range s.idx {
				if rec.TxID > t.LastAppliedTx() {
					if err := t.Insert(e); err != nil {
						return err
					}
					applied = true
				}
			}
		case wal.OpDelete:
			q := quad.Quad{Graph: quad.Atom(rec.Graph), Subject: quad.Atom(rec.Subject), Predicate: quad.Atom(rec.Predicate), Object: quad.Atom(rec.Object)}
			for _, t := range s.idx {
				if rec.TxID > t.LastAppliedTx() {
					if _, err := t.Delete(q, rec.ValidFrom, int64(rec.TxID), rec.TxID); err != nil {
						return err
					}
					applied = true
				}
			}
		}
	}
	if !applied {
		return nil
	}
	for _, t := range s.idx {
		if err := t.Sync(); err != nil {
			return err
		}
	}
	return s.log.Checkpoint()
}

func (s *Store) closeAll() error {
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	note(s.atoms.Close())
	for _, t := range s.idx {
		note(t.Close())
	}
	note(s.log.Close())
	note(s.text.Close())
	return firstErr
}

// Close releases every underlying file without disposing the Store's
// on-disk state (unlike Dispose, which is reserved for the pool's
// teardown path and additionally marks the Store unusable).
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeAll()
}

// Dispose closes the store and marks it permanently unusable; any
// further call returns merr.KindObjectDisposed.
func (s *Store) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return nil
	}
	err := s.closeAll()
	s.state = StateDisposed
	return err
}

func (s *Store) checkDisposed() error {
	if s.state == StateDisposed {
		return merr.New(merr.KindObjectDisposed, "store")
	}
	return nil
}

// Dir returns the directory this store was opened from.
func (s *Store) Dir() string { return s.dir }

// State returns the store's current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func nowMillis() int64 { return time.Now().UnixMilli() }
