package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/AccelByte/extend-challenge-ledger/pkg/abi"
	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// JSON-RPC error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcInternalError  = -32603
	// rpcExecutionError is the code nodes use for a reverted call.
	rpcExecutionError = 3
)

// ProgressReader reads authoritative progress.
type ProgressReader interface {
	GetPlayerProgress(ctx context.Context, player string) (*ledger.Progress, error)
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return e.Message
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// callArgs is the transaction object of eth_call. Only data is read.
type callArgs struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Input string `json:"input"`
}

// RPC serves read-only ledger views over JSON-RPC in the contract ABI layout.
type RPC struct {
	ledger  ProgressReader
	chainID uint64
}

// NewRPC creates the JSON-RPC handler.
func NewRPC(l ProgressReader, chainID uint64) *RPC {
	return &RPC{ledger: l, chainID: chainID}
}

// Register mounts POST /rpc.
func (h *RPC) Register(r *mux.Router) {
	r.HandleFunc("/rpc", h.serve).Methods(http.MethodPost)
}

func (h *RPC) serve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: rpcParseError, Message: err.Error()}})
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []rpcRequest
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: rpcParseError, Message: err.Error()}})
			return
		}
		responses := make([]rpcResponse, 0, len(batch))
		for i := range batch {
			responses = append(responses, h.dispatch(r.Context(), &batch[i]))
		}
		writeJSON(w, http.StatusOK, responses)
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: rpcParseError, Message: err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, h.dispatch(r.Context(), &req))
}

func (h *RPC) dispatch(ctx context.Context, req *rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if req.JSONRPC != "2.0" || req.Method == "" {
		resp.Error = &rpcError{Code: rpcInvalidRequest, Message: "invalid JSON-RPC request"}
		return resp
	}

	var (
		result interface{}
		err    error
	)
	switch req.Method {
	case "eth_chainId":
		result = hexutil.EncodeUint64(h.chainID)
	case "net_version":
		result = fmt.Sprintf("%d", h.chainID)
	case "eth_call":
		result, err = h.call(ctx, req.Params)
	default:
		err = &rpcError{Code: rpcMethodNotFound, Message: fmt.Sprintf("method %s not supported", req.Method)}
	}

	if err != nil {
		var rerr *rpcError
		if !errors.As(err, &rerr) {
			logrus.Errorf("rpc %s failed: %v", req.Method, err)
			rerr = &rpcError{Code: rpcInternalError, Message: "internal error"}
		}
		resp.Error = rerr
		return resp
	}
	resp.Result = result
	return resp
}

func (h *RPC) call(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, &rpcError{Code: rpcInvalidParams, Message: "missing call object"}
	}
	var args callArgs
	if err := json.Unmarshal(params[0], &args); err != nil {
		return nil, &rpcError{Code: rpcInvalidParams, Message: fmt.Sprintf("invalid call object: %v", err)}
	}
	input := args.Data
	if input == "" {
		input = args.Input
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return nil, &rpcError{Code: rpcInvalidParams, Message: fmt.Sprintf("invalid call data: %v", err)}
	}

	selector, rest, err := abi.SplitCalldata(data)
	if err != nil {
		return nil, &rpcError{Code: rpcInvalidParams, Message: err.Error()}
	}

	var encoded []byte
	switch selector {
	case abi.GetPlayerProgressSelector, abi.PendingRewardUnitsSelector:
		addr, err := abi.DecodeAddressArg(rest)
		if err != nil {
			return nil, &rpcError{Code: rpcInvalidParams, Message: err.Error()}
		}
		progress, err := h.ledger.GetPlayerProgress(ctx, strings.ToLower(addr.Hex()))
		if err != nil {
			if ledger.IsRejection(err) {
				return nil, &rpcError{Code: rpcExecutionError, Message: "execution reverted: " + err.Error()}
			}
			return nil, err
		}
		if selector == abi.GetPlayerProgressSelector {
			encoded, err = abi.EncodeProgress(*progress)
		} else {
			encoded, err = abi.EncodeUint(progress.ClaimableUnits)
		}
		if err != nil {
			return nil, err
		}
	case abi.StartChallengeSelector, abi.RecordNpcTalkSelector, abi.RedeemMyRewardsSelector, abi.SetGameOperatorSelector:
		return nil, &rpcError{Code: rpcExecutionError, Message: fmt.Sprintf("execution reverted: selector %s changes state and is served by the challenge API", selector.Hex())}
	default:
		return nil, &rpcError{Code: rpcExecutionError, Message: fmt.Sprintf("execution reverted: unknown selector %s", selector.Hex())}
	}

	return hexutil.Encode(encoded), nil
}
