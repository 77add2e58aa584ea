package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/raikusim/slotmarket/pkg/auction"
	"github.com/raikusim/slotmarket/pkg/coordinator"
	"github.com/raikusim/slotmarket/pkg/ledger"
	"github.com/raikusim/slotmarket/pkg/market"
	"github.com/raikusim/slotmarket/pkg/txstore"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// statusForError maps the core error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, auction.ErrBelowMinimum),
		errors.Is(err, auction.ErrLeadTooSmall),
		errors.Is(err, auction.ErrWrongSlot),
		errors.Is(err, auction.ErrAuctionEnded),
		errors.Is(err, coordinator.ErrCUOverflow):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrNoSuchSlot),
		errors.Is(err, txstore.ErrNoSuchTx),
		errors.Is(err, auction.ErrNoSuchAuction):
		return http.StatusNotFound
	case errors.Is(err, market.ErrInvalidTransition),
		errors.Is(err, txstore.ErrInvalidTransition),
		errors.Is(err, txstore.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CreateSession issues a session (or revalidates an existing one) and sets
// the session cookie.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	now := s.clk.Now()

	var id string
	if cookie, err := r.Cookie(sessionCookie); err == nil && s.sessions.Validate(cookie.Value, now) {
		id = cookie.Value
	} else {
		id = s.sessions.Create(now).ID
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeData(w, SessionResponse{
		SessionID: id,
		Balance:   s.coord.Balance(id),
	})
}

// SubmitJitBid handles POST /transactions/jit.
func (s *Server) SubmitJitBid(w http.ResponseWriter, r *http.Request) {
	var req JitBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, err := s.sessionFromRequest(r, req.SessionID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	receipt, err := s.coord.SubmitJitBid(session, req.BidAmount, req.ComputeUnits, req.Data)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeData(w, BidResponse{TxID: receipt.TxID, SlotNumber: receipt.Slot})
}

// SubmitAotBid handles POST /transactions/aot.
func (s *Server) SubmitAotBid(w http.ResponseWriter, r *http.Request) {
	var req AotBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, err := s.sessionFromRequest(r, req.SessionID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	receipt, err := s.coord.SubmitAotBid(session, req.SlotNumber, req.BidAmount, req.ComputeUnits, req.Data)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeData(w, BidResponse{TxID: receipt.TxID, SlotNumber: receipt.Slot})
}

// GetStatus handles GET /marketplace/status.
func (s *Server) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeData(w, s.coord.Stats())
}

// ListSlots handles GET /marketplace/slots.
func (s *Server) ListSlots(w http.ResponseWriter, _ *http.Request) {
	writeData(w, s.coord.WindowSnapshot())
}

// GetSlot handles GET /marketplace/slots/{slot_number}.
func (s *Server) GetSlot(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["slot_number"]

	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot number: "+raw)
		return
	}

	slot, err := s.coord.GetSlot(market.SlotNumber(n))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeData(w, slot)
}

// ListJitAuctions handles GET /auctions/jit.
func (s *Server) ListJitAuctions(w http.ResponseWriter, _ *http.Request) {
	auctions := make([]*auction.JitAuction, 0, 1)
	if jit := s.coord.JitAuction(); jit != nil {
		auctions = append(auctions, jit)
	}

	writeData(w, auctions)
}

// ListAotAuctions handles GET /auctions/aot.
func (s *Server) ListAotAuctions(w http.ResponseWriter, _ *http.Request) {
	writeData(w, s.coord.AotAuctions())
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 0 {
		page = 0
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}

	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return page, limit
}

// ListTransactions handles GET /transactions. With a valid session cookie it
// returns the session's transactions; pass all=true for everything.
func (s *Server) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	if r.URL.Query().Get("all") == "true" {
		writeData(w, s.coord.ListTransactions(page, limit))
		return
	}

	session, err := s.sessionFromRequest(r, r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeData(w, s.coord.ListTransactionsBySession(session, page, limit))
}

// GetTransaction handles GET /transactions/{transaction_id}.
func (s *Server) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.coord.GetTransaction(mux.Vars(r)["transaction_id"])
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeData(w, tx)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeData(w, map[string]any{
		"status":       "ok",
		"current_slot": s.coord.CurrentSlot(),
	})
}
