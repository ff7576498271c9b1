package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/AccelByte/extend-challenge-ledger/pkg/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type rpcTestResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Result  string    `json:"result"`
	Error   *rpcError `json:"error"`
}

func callData(t *testing.T, selector abi.Selector, player string) string {
	t.Helper()
	data, err := abi.EncodeAddressCall(selector, common.HexToAddress(player))
	if err != nil {
		t.Fatalf("EncodeAddressCall() error = %v", err)
	}
	return hexutil.Encode(data)
}

func rpcCall(id int, method string, params ...interface{}) map[string]interface{} {
	if params == nil {
		params = []interface{}{}
	}
	return map[string]interface{}{"jsonrpc": "2.0", "id": id, "method": method, "params": params}
}

func TestRPC_ChainID(t *testing.T) {
	f := setup(t, false)

	rec := f.do(t, http.MethodPost, "/rpc", rpcCall(1, "eth_chainId"))
	var resp rpcTestResponse
	decode(t, rec, &resp)
	if resp.Error != nil || resp.Result != "0x7a69" {
		t.Errorf("eth_chainId = %+v, want 0x7a69", resp)
	}
}

func TestRPC_GetPlayerProgress(t *testing.T) {
	f := setup(t, false)
	f.completeChallenge(t)

	rec := f.do(t, http.MethodPost, "/rpc", rpcCall(7, "eth_call",
		map[string]string{"to": ownerAddr, "data": callData(t, abi.GetPlayerProgressSelector, f.player)}, "latest"))
	var resp rpcTestResponse
	decode(t, rec, &resp)
	if resp.Error != nil {
		t.Fatalf("eth_call error = %+v", resp.Error)
	}
	if resp.ID != 7 {
		t.Errorf("id = %d, want 7", resp.ID)
	}

	raw, err := hexutil.Decode(resp.Result)
	if err != nil {
		t.Fatalf("result is not hex: %v", err)
	}
	if len(raw) != abi.ProgressWords*abi.WordSize {
		t.Fatalf("result length = %d, want %d", len(raw), abi.ProgressWords*abi.WordSize)
	}
	progress, err := abi.DecodeProgress(raw)
	if err != nil {
		t.Fatalf("DecodeProgress() error = %v", err)
	}
	if progress.ProgressCount != 9 || !progress.Completed || progress.ClaimableUnits == 0 {
		t.Errorf("decoded progress = %+v", progress)
	}
}

func TestRPC_PendingRewardUnits(t *testing.T) {
	f := setup(t, false)
	f.completeChallenge(t)

	rec := f.do(t, http.MethodPost, "/rpc", rpcCall(2, "eth_call",
		map[string]string{"input": callData(t, abi.PendingRewardUnitsSelector, f.player)}))
	var resp rpcTestResponse
	decode(t, rec, &resp)
	if resp.Error != nil {
		t.Fatalf("eth_call error = %+v", resp.Error)
	}
	units, err := hexutil.Decode(resp.Result)
	if err != nil || len(units) != abi.WordSize || units[abi.WordSize-1] != 1 {
		t.Errorf("pendingRewardUnits = %s, want 1", resp.Result)
	}
}

func TestRPC_UnknownPlayerReadsZero(t *testing.T) {
	f := setup(t, false)

	rec := f.do(t, http.MethodPost, "/rpc", rpcCall(3, "eth_call",
		map[string]string{"data": callData(t, abi.GetPlayerProgressSelector, "0x00000000000000000000000000000000000000bb")}))
	var resp rpcTestResponse
	decode(t, rec, &resp)
	if resp.Error != nil {
		t.Fatalf("eth_call error = %+v", resp.Error)
	}
	raw, _ := hexutil.Decode(resp.Result)
	for i, b := range raw {
		if b != 0 {
			t.Fatalf("byte %d = %d, want all zero", i, b)
		}
	}
}

func TestRPC_Errors(t *testing.T) {
	f := setup(t, false)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"parse error", "{", rpcParseError},
		{"wrong version", map[string]interface{}{"jsonrpc": "1.0", "id": 1, "method": "eth_chainId"}, rpcInvalidRequest},
		{"unknown method", rpcCall(1, "eth_sendTransaction"), rpcMethodNotFound},
		{"missing params", rpcCall(1, "eth_call"), rpcInvalidParams},
		{"bad hex", rpcCall(1, "eth_call", map[string]string{"data": "zz"}), rpcInvalidParams},
		{"short calldata", rpcCall(1, "eth_call", map[string]string{"data": "0x0102"}), rpcInvalidParams},
		{"unknown selector", rpcCall(1, "eth_call", map[string]string{"data": "0xdeadbeef"}), rpcExecutionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/rpc", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp rpcTestResponse
			decode(t, rec, &resp)
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %d", resp.Error, tt.code)
			}
		})
	}
}

func TestRPC_StateChangingSelectorsAreNotCallable(t *testing.T) {
	f := setup(t, false)

	for _, selector := range []abi.Selector{
		abi.StartChallengeSelector,
		abi.RecordNpcTalkSelector,
		abi.RedeemMyRewardsSelector,
		abi.SetGameOperatorSelector,
	} {
		rec := f.do(t, http.MethodPost, "/rpc", rpcCall(1, "eth_call", map[string]string{"data": selector.Hex()}))
		var resp rpcTestResponse
		decode(t, rec, &resp)
		if resp.Error == nil || resp.Error.Code != rpcExecutionError {
			t.Fatalf("selector %s error = %+v, want code %d", selector.Hex(), resp.Error, rpcExecutionError)
		}
		if !strings.Contains(resp.Error.Message, "changes state") {
			t.Errorf("selector %s message = %q, want state-changing rejection", selector.Hex(), resp.Error.Message)
		}
	}
}

func TestRPC_Batch(t *testing.T) {
	f := setup(t, false)

	rec := f.do(t, http.MethodPost, "/rpc", []interface{}{
		rpcCall(1, "eth_chainId"),
		rpcCall(2, "net_version"),
	})
	var resp []rpcTestResponse
	decode(t, rec, &resp)
	if len(resp) != 2 {
		t.Fatalf("batch returned %d responses, want 2", len(resp))
	}
	if resp[0].Result != "0x7a69" || resp[1].Result != "31337" {
		t.Errorf("batch results = %+v", resp)
	}
}
