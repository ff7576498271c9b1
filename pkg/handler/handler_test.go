package handler

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-challenge-ledger/pkg/auth"
	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/AccelByte/extend-challenge-ledger/pkg/session"
	"github.com/AccelByte/extend-challenge-ledger/pkg/state"
	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
)

const (
	ownerAddr    = "0x00000000000000000000000000000000000000f0"
	operatorAddr = "0x00000000000000000000000000000000000000e1"
	adminToken   = "s3cret"
	testRoom     = "act1"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type noopPayer struct{}

func (noopPayer) Pay(ctx context.Context, payout *state.Payout) error { return nil }

type fixture struct {
	router *mux.Router
	ledger *ledger.Ledger
	key    *ecdsa.PrivateKey
	player string
}

func setup(t *testing.T, requireSignature bool) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := state.NewRedisStore(client, state.RedisStoreConfig{})
	sessions := state.NewRedisSessionStore(client, state.RedisSessionStoreConfig{})
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}

	l, err := ledger.New(store, noopPayer{}, ledger.Config{Policy: ledger.DefaultPolicy(), Owner: ownerAddr},
		ledger.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("ledger.New() error = %v", err)
	}
	if err := l.SetGameOperator(context.Background(), ownerAddr, operatorAddr, true); err != nil {
		t.Fatalf("SetGameOperator() error = %v", err)
	}

	svc, err := session.NewService(l, sessions, session.Config{Operator: operatorAddr}, session.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("session.NewService() error = %v", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	router := mux.NewRouter()
	router.Use(RequestLogging)
	NewChallenge(svc, requireSignature).Register(router)
	NewRPC(l, 31337).Register(router)
	NewAdmin(l, adminToken).Register(router)

	return &fixture{
		router: router,
		ledger: l,
		key:    key,
		player: strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()),
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func (f *fixture) completeChallenge(t *testing.T) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/game/challenge/start", map[string]string{
		"player_address": f.player,
		"room_name":      testRoom,
		"session_id":     "s-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}

	for i := 0; i < 9; i++ {
		rec := f.do(t, http.MethodPost, "/game/challenge/npc-talk", map[string]interface{}{
			"player_address": f.player,
			"npc_id":         fmt.Sprintf("npc-%d", i),
			"room_name":      testRoom,
			"engagement_ms":  1200,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("npc-talk %d status = %d, body = %s", i, rec.Code, rec.Body.String())
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ledger.ErrNotOperator, http.StatusForbidden},
		{ledger.ErrNotOwner, http.StatusForbidden},
		{auth.ErrSignerMismatch, http.StatusForbidden},
		{fmt.Errorf("%w: bad", session.ErrInvalidRequest), http.StatusBadRequest},
		{ledger.ErrInvalidAddress, http.StatusBadRequest},
		{session.ErrNoSession, http.StatusNotFound},
		{session.ErrRoomMismatch, http.StatusConflict},
		{ledger.ErrChallengeNotActive, http.StatusConflict},
		{session.ErrChallengeExpired, http.StatusConflict},
		{ledger.ErrNothingToRedeem, http.StatusConflict},
		{fmt.Errorf("%w: r-1", ledger.ErrRewardAlreadyGranted), http.StatusConflict},
		{ledger.ErrInsufficientPool, http.StatusServiceUnavailable},
		{session.ErrRateLimited, http.StatusTooManyRequests},
		{ledger.ErrPayoutFailed, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestChallenge_FullFlow(t *testing.T) {
	f := setup(t, false)
	if _, err := f.ledger.Fund(context.Background(), ownerAddr, big.NewInt(1e18)); err != nil {
		t.Fatalf("Fund() error = %v", err)
	}

	f.completeChallenge(t)

	rec := f.do(t, http.MethodGet, "/game/challenge/progress/"+f.player, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var progress session.ProgressResult
	decode(t, rec, &progress)
	if !progress.Progress.Completed || progress.Progress.ProgressCount != 9 {
		t.Errorf("progress = %+v, want completed with 9 talks", progress.Progress)
	}
	if progress.Session == nil || progress.Session.UniqueNpcCount != 9 {
		t.Errorf("session = %+v, want 9 unique npcs", progress.Session)
	}

	claimBody := map[string]string{"player_address": f.player, "room_name": testRoom}
	rec = f.do(t, http.MethodPost, "/game/challenge/claim", claimBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var claim session.ClaimResult
	decode(t, rec, &claim)
	if !claim.Paid || claim.Payout == nil || claim.Payout.Units == 0 {
		t.Errorf("claim = %+v, want a paid payout", claim)
	}

	rec = f.do(t, http.MethodPost, "/game/challenge/claim", claimBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("second claim status = %d, body = %s", rec.Code, rec.Body.String())
	}
	claim = session.ClaimResult{}
	decode(t, rec, &claim)
	if claim.Paid || !claim.AlreadyPaid {
		t.Errorf("second claim = %+v, want alreadyPaid", claim)
	}
}

func TestChallenge_Errors(t *testing.T) {
	f := setup(t, false)

	tests := []struct {
		name string
		path string
		body interface{}
		want int
	}{
		{"malformed json", "/game/challenge/start", "{not json", http.StatusBadRequest},
		{"missing fields", "/game/challenge/start", map[string]string{"player_address": f.player}, http.StatusBadRequest},
		{"no session", "/game/challenge/npc-talk", map[string]string{"player_address": f.player, "npc_id": "a", "room_name": testRoom}, http.StatusNotFound},
		{"claim without session", "/game/challenge/claim", map[string]string{"player_address": f.player, "room_name": testRoom}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			var body errorResponse
			decode(t, rec, &body)
			if body.Error == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestChallenge_ClaimWithoutPoolIsUnavailable(t *testing.T) {
	f := setup(t, false)
	f.completeChallenge(t)

	rec := f.do(t, http.MethodPost, "/game/challenge/claim", map[string]string{"player_address": f.player, "room_name": testRoom})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (body %s)", rec.Code, rec.Body.String())
	}

	progress, err := f.ledger.GetPlayerProgress(context.Background(), f.player)
	if err != nil {
		t.Fatalf("GetPlayerProgress() error = %v", err)
	}
	if progress.ClaimableUnits == 0 {
		t.Error("failed claim must keep claimable units")
	}
}

func TestChallenge_ClaimSignature(t *testing.T) {
	f := setup(t, true)
	if _, err := f.ledger.Fund(context.Background(), ownerAddr, big.NewInt(1e18)); err != nil {
		t.Fatalf("Fund() error = %v", err)
	}
	f.completeChallenge(t)

	rec := f.do(t, http.MethodPost, "/game/challenge/claim", map[string]string{"player_address": f.player, "room_name": testRoom})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unsigned claim status = %d, want 403", rec.Code)
	}

	other, _ := crypto.GenerateKey()
	forged, err := auth.SignClaim(other, testRoom, f.player)
	if err != nil {
		t.Fatalf("SignClaim() error = %v", err)
	}
	rec = f.do(t, http.MethodPost, "/game/challenge/claim", map[string]string{"player_address": f.player, "room_name": testRoom, "signature": forged})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("forged claim status = %d, want 403", rec.Code)
	}

	sig, err := auth.SignClaim(f.key, testRoom, f.player)
	if err != nil {
		t.Fatalf("SignClaim() error = %v", err)
	}
	rec = f.do(t, http.MethodPost, "/game/challenge/claim", map[string]string{"player_address": f.player, "room_name": testRoom, "signature": sig})
	if rec.Code != http.StatusOK {
		t.Fatalf("signed claim status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestChallenge_ClaimSignatureIgnoresSurroundingSpace(t *testing.T) {
	f := setup(t, true)
	if _, err := f.ledger.Fund(context.Background(), ownerAddr, big.NewInt(1e18)); err != nil {
		t.Fatalf("Fund() error = %v", err)
	}
	f.completeChallenge(t)

	sig, err := auth.SignClaim(f.key, testRoom, f.player)
	if err != nil {
		t.Fatalf("SignClaim() error = %v", err)
	}
	rec := f.do(t, http.MethodPost, "/game/challenge/claim", map[string]string{
		"player_address": " " + f.player + " ",
		"room_name":      "  " + testRoom + "\t",
		"signature":      sig,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("padded claim status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
