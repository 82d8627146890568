package store

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/citizenwallet/feed/pkg/indexer"
	"github.com/google/uuid"
)

// State is an immutable view of the store. Callers may keep it as long as they like.
type State struct {
	Transfers      []*indexer.Transfer
	TotalTransfers int
	TotalAmount    *big.Int
	FromDate       time.Time
	Loading        bool
	Account        string
}

// Store holds the merged transfer collection of the feed.
//
// Every mutation is applied inside one critical section and subscribers are
// notified afterwards, in mutation order, with a snapshot of the result.
// Subscribers run without any store lock held.
type Store struct {
	mu    sync.RWMutex
	state State

	// snapshots waiting to be delivered, in mutation order
	pendingMu sync.Mutex
	pending   []State
	draining  bool

	subsMu sync.RWMutex
	subs   map[string]func(State)

	now func() time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Store {
	s := &Store{
		subs: map[string]func(State){},
		now:  now,
	}

	s.state = s.initialState("")

	return s
}

func (s *Store) initialState(account string) State {
	return State{
		Transfers:      []*indexer.Transfer{},
		TotalTransfers: 0,
		TotalAmount:    new(big.Int),
		FromDate:       s.now(),
		Loading:        false,
		Account:        account,
	}
}

// Subscribe registers fn to be called after every mutation, returns a function to unsubscribe.
// fn may read the store. Calls are never concurrent.
func (s *Store) Subscribe(fn func(State)) func() {
	id := uuid.NewString()

	s.subsMu.Lock()
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// mutate applies fn to the state and publishes the result
func (s *Store) mutate(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshot()

	// queue while the state is still locked so the queue follows the mutation order
	s.pendingMu.Lock()
	s.pending = append(s.pending, snap)
	start := !s.draining
	s.draining = true
	s.pendingMu.Unlock()

	s.mu.Unlock()

	if start {
		s.drain()
	}
}

// drain delivers queued snapshots until the queue is empty. Only one goroutine
// drains at a time, the others leave their snapshot in the queue and return.
func (s *Store) drain() {
	for {
		s.pendingMu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.pendingMu.Unlock()
			return
		}

		snap := s.pending[0]
		s.pending[0] = State{}
		s.pending = s.pending[1:]
		s.pendingMu.Unlock()

		for _, sub := range s.subscribers() {
			sub(snap)
		}
	}
}

func (s *Store) subscribers() []func(State) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}

	return subs
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot()
}

func (s *Store) snapshot() State {
	txs := make([]*indexer.Transfer, len(s.state.Transfers))
	for i, tx := range s.state.Transfers {
		txs[i] = tx.Clone()
	}

	return State{
		Transfers:      txs,
		TotalTransfers: s.state.TotalTransfers,
		TotalAmount:    new(big.Int).Set(s.state.TotalAmount),
		FromDate:       s.state.FromDate,
		Loading:        s.state.Loading,
		Account:        s.state.Account,
	}
}

// Account returns the active account filter, empty when the feed shows the whole token
func (s *Store) Account() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Account
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Loading
}

func (s *Store) FromDate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.FromDate
}

// AddTransfers prepends transfers without deduplication or sorting.
// Callers must make sure none of the hashes are already present.
func (s *Store) AddTransfers(txs []*indexer.Transfer) {
	if len(txs) == 0 {
		return
	}

	s.mutate(func(st *State) {
		merged := make([]*indexer.Transfer, 0, len(txs)+len(st.Transfers))
		for _, tx := range txs {
			merged = append(merged, tx.Clone())
		}
		merged = append(merged, st.Transfers...)

		st.Transfers = merged
		recomputeTotals(st)
	})
}

// PutTransfers inserts or updates transfers by hash, then sorts the collection by
// created_at descending and recomputes the totals.
func (s *Store) PutTransfers(txs []*indexer.Transfer) {
	if len(txs) == 0 {
		return
	}

	s.mutate(func(st *State) {
		index := make(map[string]*indexer.Transfer, len(st.Transfers))
		for _, tx := range st.Transfers {
			index[tx.Hash] = tx
		}

		// add or update the transfers based on their hash
		inserted := []*indexer.Transfer{}
		for _, tx := range txs {
			existing, ok := index[tx.Hash]
			if ok {
				existing.Update(tx.Clone())
				continue
			}

			c := tx.Clone()
			index[c.Hash] = c
			inserted = append(inserted, c)
		}

		// new items go to the front, the last one of the batch first
		merged := make([]*indexer.Transfer, 0, len(inserted)+len(st.Transfers))
		for i := len(inserted) - 1; i >= 0; i-- {
			merged = append(merged, inserted[i])
		}
		merged = append(merged, st.Transfers...)

		sort.SliceStable(merged, func(i, j int) bool {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		})

		st.Transfers = merged
		recomputeTotals(st)
	})
}

// ClearTransfers resets the store to its initial state, the account filter is kept
func (s *Store) ClearTransfers() {
	s.mutate(func(st *State) {
		*st = s.initialState(st.Account)
	})
}

func (s *Store) SetDate(date time.Time) {
	s.mutate(func(st *State) {
		st.FromDate = date
	})
}

// StartLoadingFromDate moves the cursor to date and raises the loading flag
func (s *Store) StartLoadingFromDate(date time.Time) {
	s.mutate(func(st *State) {
		st.FromDate = date
		st.Loading = true
	})
}

func (s *Store) StopLoadingFromDate() {
	s.mutate(func(st *State) {
		st.Loading = false
	})
}

// SetAccount changes the account filter. It does not clear the collection.
func (s *Store) SetAccount(account string) {
	s.mutate(func(st *State) {
		st.Account = account
	})
}

func recomputeTotals(st *State) {
	total := new(big.Int)
	for _, tx := range st.Transfers {
		total.Add(total, tx.ValueOrZero())
	}

	st.TotalAmount = total
	st.TotalTransfers = len(st.Transfers)
}
