package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/AccelByte/extend-challenge-ledger/pkg/auth"
	"github.com/AccelByte/extend-challenge-ledger/pkg/session"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// SessionService is the session mirror used by the challenge endpoints.
type SessionService interface {
	Start(ctx context.Context, req session.StartRequest) (*session.StartResult, error)
	RecordNpcTalk(ctx context.Context, req session.NpcTalkRequest) (*session.NpcTalkResult, error)
	Claim(ctx context.Context, req session.ClaimRequest) (*session.ClaimResult, error)
	Progress(ctx context.Context, playerAddress string) (*session.ProgressResult, error)
}

// Challenge serves the game-facing challenge endpoints.
type Challenge struct {
	sessions         SessionService
	requireSignature bool
}

// NewChallenge creates the challenge handler. With requireSignature set,
// claims must carry the player's signature of the claim message.
func NewChallenge(sessions SessionService, requireSignature bool) *Challenge {
	return &Challenge{
		sessions:         sessions,
		requireSignature: requireSignature,
	}
}

// Register mounts the endpoints under /game/challenge.
func (h *Challenge) Register(r *mux.Router) {
	sub := r.PathPrefix("/game/challenge").Subrouter()
	sub.HandleFunc("/start", h.start).Methods(http.MethodPost)
	sub.HandleFunc("/npc-talk", h.npcTalk).Methods(http.MethodPost)
	sub.HandleFunc("/claim", h.claim).Methods(http.MethodPost)
	sub.HandleFunc("/progress/{player}", h.progress).Methods(http.MethodGet)
}

func (h *Challenge) start(w http.ResponseWriter, r *http.Request) {
	var req session.StartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tagPlayer(r, req.PlayerAddress)

	result, err := h.sessions.Start(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Challenge) npcTalk(w http.ResponseWriter, r *http.Request) {
	var req session.NpcTalkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tagPlayer(r, req.PlayerAddress)

	result, err := h.sessions.RecordNpcTalk(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Challenge) claim(w http.ResponseWriter, r *http.Request) {
	var req session.ClaimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tagPlayer(r, req.PlayerAddress)

	if h.requireSignature {
		room, player := strings.TrimSpace(req.RoomName), strings.TrimSpace(req.PlayerAddress)
		if err := auth.VerifyClaim(room, player, req.Signature); err != nil {
			logrus.Warnf("rejected claim for player %s in room %s: %v", req.PlayerAddress, req.RoomName, err)
			writeError(w, r, err)
			return
		}
	}

	result, err := h.sessions.Claim(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Challenge) progress(w http.ResponseWriter, r *http.Request) {
	player := mux.Vars(r)["player"]
	tagPlayer(r, player)

	result, err := h.sessions.Progress(r.Context(), player)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
