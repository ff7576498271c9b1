package handler

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/AccelByte/extend-challenge-ledger/pkg/session"
	"github.com/AccelByte/extend-challenge-ledger/pkg/state"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// AdminLedger is the owner surface of the ledger.
type AdminLedger interface {
	Owner() string
	SetGameOperator(ctx context.Context, caller, operator string, allowed bool) error
	IsOperator(ctx context.Context, addr string) (bool, error)
	Fund(ctx context.Context, from string, amount *big.Int) (*big.Int, error)
	PoolBalance(ctx context.Context) (*big.Int, error)
	RewardPlayer(ctx context.Context, caller, player string, units uint64, rewardID string) (*ledger.Progress, error)
	PayoutHistory(ctx context.Context, player string, limit int64) ([]state.Payout, error)
}

type operatorRequest struct {
	Operator string `json:"operator"`
	Allowed  bool   `json:"allowed"`
}

type operatorResponse struct {
	Operator string `json:"operator"`
	Allowed  bool   `json:"allowed"`
}

type fundRequest struct {
	From      string `json:"from"`
	AmountWei string `json:"amount_wei"`
}

type poolResponse struct {
	PoolWei string `json:"pool_wei"`
}

type payoutsResponse struct {
	Player  string         `json:"player"`
	Payouts []state.Payout `json:"payouts"`
}

type rewardRequest struct {
	Player   string `json:"player"`
	Units    uint64 `json:"units"`
	RewardID string `json:"reward_id"`
}

// Admin serves owner maintenance endpoints. Every call acts as the ledger
// owner and requires the admin bearer token.
type Admin struct {
	ledger AdminLedger
	token  string
}

// NewAdmin creates the admin handler.
func NewAdmin(l AdminLedger, token string) *Admin {
	return &Admin{ledger: l, token: token}
}

// Register mounts the endpoints under /admin behind bearer authentication.
func (h *Admin) Register(r *mux.Router) {
	sub := r.PathPrefix("/admin").Subrouter()
	sub.Use(BearerAuth(h.token))
	sub.HandleFunc("/operators", h.setOperator).Methods(http.MethodPost)
	sub.HandleFunc("/operators/{address}", h.getOperator).Methods(http.MethodGet)
	sub.HandleFunc("/fund", h.fund).Methods(http.MethodPost)
	sub.HandleFunc("/pool", h.pool).Methods(http.MethodGet)
	sub.HandleFunc("/reward", h.reward).Methods(http.MethodPost)
	sub.HandleFunc("/payouts/{address}", h.payouts).Methods(http.MethodGet)
}

func (h *Admin) setOperator(w http.ResponseWriter, r *http.Request) {
	var req operatorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.ledger.SetGameOperator(r.Context(), h.ledger.Owner(), req.Operator, req.Allowed); err != nil {
		writeError(w, r, err)
		return
	}
	operator, _ := ledger.NormalizeAddress(req.Operator)
	logrus.Infof("operator %s allowed=%t", operator, req.Allowed)
	writeJSON(w, http.StatusOK, operatorResponse{Operator: operator, Allowed: req.Allowed})
}

func (h *Admin) getOperator(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	allowed, err := h.ledger.IsOperator(r.Context(), address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	operator, _ := ledger.NormalizeAddress(address)
	writeJSON(w, http.StatusOK, operatorResponse{Operator: operator, Allowed: allowed})
}

func (h *Admin) fund(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, ok := new(big.Int).SetString(req.AmountWei, 10)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: amount_wei must be a decimal integer", session.ErrInvalidRequest))
		return
	}
	from := req.From
	if from == "" {
		from = h.ledger.Owner()
	}

	pool, err := h.ledger.Fund(r.Context(), from, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{PoolWei: pool.String()})
}

func (h *Admin) pool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.ledger.PoolBalance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{PoolWei: pool.String()})
}

func (h *Admin) reward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	progress, err := h.ledger.RewardPlayer(r.Context(), h.ledger.Owner(), req.Player, req.Units, req.RewardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *Admin) payouts(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", session.ErrInvalidRequest))
			return
		}
		limit = n
	}

	address := mux.Vars(r)["address"]
	payouts, err := h.ledger.PayoutHistory(r.Context(), address, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	player, _ := ledger.NormalizeAddress(address)
	writeJSON(w, http.StatusOK, payoutsResponse{Player: player, Payouts: payouts})
}
