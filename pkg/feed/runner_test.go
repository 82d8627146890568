package feed

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/citizenwallet/feed/pkg/indexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// accountSource serves one record per account, and blocks backfills of blocked accounts
// until they are cancelled
type accountSource struct {
	blocked string

	mu       sync.Mutex
	accounts []string
}

func (s *accountSource) Name() string {
	return "indexer"
}

func (s *accountSource) FetchWindow(ctx context.Context, w Window) (*Page, error) {
	s.mu.Lock()
	s.accounts = append(s.accounts, w.Account)
	s.mu.Unlock()

	if w.Account == s.blocked && w.Limit == LoaderFetchLimit {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	return &Page{Transfers: []*indexer.Transfer{
		makeTransfer(fmt.Sprintf("%s-tx", w.Account), 1, t0),
	}}, nil
}

func (s *accountSource) seen(account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a == account {
			return true
		}
	}
	return false
}

func TestRunnerNotStarted(t *testing.T) {
	e := newTestEngine(t, &accountSource{}, newRecordingStore())
	r := NewRunner(e, t0, zaptest.NewLogger(t))

	assert.ErrorIs(t, r.Switch(commonsHub), ErrRunnerNotStarted)
	assert.ErrorIs(t, r.Backfill(t0), ErrRunnerNotStarted)

	r.Close()
}

func TestRunnerStart(t *testing.T) {
	st := newRecordingStore()
	st.SetAccount(commonsHub)

	e := newTestEngine(t, &accountSource{}, st, WithListenInterval(time.Hour))
	r := NewRunner(e, t0, zaptest.NewLogger(t))

	r.Start(context.Background())
	defer r.Close()

	require.Eventually(t, func() bool {
		return st.Snapshot().TotalTransfers == 1 && !st.Loading()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, t0, st.FromDate())
}

func TestRunnerSwitch(t *testing.T) {
	src := &accountSource{blocked: commonsHub}

	st := newRecordingStore()
	st.SetAccount(commonsHub)

	e := newTestEngine(t, src, st, WithListenInterval(time.Hour))
	r := NewRunner(e, t0, zaptest.NewLogger(t))

	r.Start(context.Background())
	defer r.Close()

	require.Eventually(t, func() bool {
		return st.Loading() && src.seen(commonsHub)
	}, time.Second, 5*time.Millisecond)

	// the blocked backfill is cancelled before the switch resumes sync
	require.NoError(t, r.Switch(regenVillage))

	require.Eventually(t, func() bool {
		return st.Snapshot().TotalTransfers == 1 && !st.Loading()
	}, time.Second, 5*time.Millisecond)

	snap := st.Snapshot()
	assert.Equal(t, regenVillage, snap.Account)
	assert.Equal(t, regenVillage+"-tx", snap.Transfers[0].Hash)

	// one loading run per backfill, none left open
	assert.Equal(t, []bool{true, false, true, false}, st.transitions())
}

func TestRunnerBackfill(t *testing.T) {
	st := newRecordingStore()
	st.SetAccount(commonsHub)

	e := newTestEngine(t, &accountSource{}, st, WithListenInterval(time.Hour))
	r := NewRunner(e, t0, zaptest.NewLogger(t))

	r.Start(context.Background())

	later := t0.Add(24 * time.Hour)
	require.NoError(t, r.Backfill(later))

	// close waits for the backfill in flight
	r.Close()

	assert.False(t, st.Loading())
	assert.Equal(t, later, st.FromDate())
}
