package transfers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/citizenwallet/feed/internal/common"
	"github.com/citizenwallet/feed/pkg/indexer"
	"github.com/citizenwallet/feed/pkg/store"
	"go.uber.org/zap"
)

const (
	defaultLimit = 100
	maxLimit     = 1000

	streamEvent = "transfers"
)

// Store is the read side of the merge store
type Store interface {
	Snapshot() store.State
	Subscribe(fn func(store.State)) func()
}

// Syncer restarts synchronization
type Syncer interface {
	Switch(account string) error
	Backfill(date time.Time) error
}

// Clearer empties the feed
type Clearer interface {
	ClearTransfers()
}

type Meta struct {
	TotalTransfers int       `json:"total_transfers"`
	TotalAmount    string    `json:"total_amount"`
	Loading        bool      `json:"loading"`
	FromDate       time.Time `json:"from_date"`
	Account        string    `json:"account"`
	Limit          int       `json:"limit,omitempty"`
	Offset         int       `json:"offset,omitempty"`
}

type streamBody struct {
	Transfers []*indexer.Transfer `json:"transfers"`
	Meta      Meta                `json:"meta"`
}

type Service struct {
	store   Store
	syncer  Syncer
	clearer Clearer
	logger  *zap.Logger
}

func NewService(st Store, syncer Syncer, clearer Clearer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:   st,
		syncer:  syncer,
		clearer: clearer,
		logger:  logger,
	}
}

func meta(s store.State) Meta {
	return Meta{
		TotalTransfers: s.TotalTransfers,
		TotalAmount:    s.TotalAmount.String(),
		Loading:        s.Loading,
		FromDate:       s.FromDate,
		Account:        s.Account,
	}
}

// Get returns a page of the current snapshot, newest first
func (s *Service) Get(w http.ResponseWriter, r *http.Request) {
	// parse pagination params from url query
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	snap := s.store.Snapshot()

	txs := []*indexer.Transfer{}
	if offset < len(snap.Transfers) {
		end := offset + limit
		if end > len(snap.Transfers) {
			end = len(snap.Transfers)
		}
		txs = snap.Transfers[offset:end]
	}

	m := meta(snap)
	m.Limit = limit
	m.Offset = offset

	err = common.BodyMultiple(w, txs, m)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

// Stream sends the full snapshot as a server sent event on connect and after every change
func (s *Service) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, err := common.StreamHeaders(w)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// only the latest state matters, a slow client skips intermediate ones
	updates := make(chan store.State, 1)
	unsubscribe := s.store.Subscribe(func(st store.State) {
		select {
		case updates <- st:
			return
		default:
		}

		select {
		case <-updates:
		default:
		}

		select {
		case updates <- st:
		default:
		}
	})
	defer unsubscribe()

	ctx := r.Context()

	snap := s.store.Snapshot()
	err = common.StreamedBody(w, flusher, streamEvent, streamBody{Transfers: snap.Transfers, Meta: meta(snap)})
	if err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case st := <-updates:
			err := common.StreamedBody(w, flusher, streamEvent, streamBody{Transfers: st.Transfers, Meta: meta(st)})
			if err != nil {
				s.logger.Debug("stream closed", zap.Error(err))
				return
			}
		}
	}
}

type accountRequest struct {
	Account string `json:"account"`
}

// SetAccount switches the feed to an account, an empty account follows the whole token
func (s *Service) SetAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	account := req.Account
	if account != "" {
		if !common.IsHexAddress(account) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		account = common.ChecksumAddress(account)
	}

	err = s.syncer.Switch(account)
	if err != nil {
		s.logger.Error("unable to switch account", zap.String("account", account), zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	err = common.Body(w, accountRequest{Account: account}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

type backfillRequest struct {
	FromDate time.Time `json:"from_date"`
}

// Backfill loads the feed again from a date, replacing the backfill in progress
func (s *Service) Backfill(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.FromDate.IsZero() {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = s.syncer.Backfill(req.FromDate)
	if err != nil {
		s.logger.Error("unable to start backfill", zap.Time("from_date", req.FromDate), zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Clear empties the feed
func (s *Service) Clear(w http.ResponseWriter, r *http.Request) {
	s.clearer.ClearTransfers()

	w.WriteHeader(http.StatusOK)
}
