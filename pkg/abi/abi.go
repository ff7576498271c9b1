// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package abi encodes ledger reads in the contract ABI layout so existing
// eth_call clients can read the ledger unchanged.
package abi

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// WordSize is the size of one ABI word.
	WordSize = 32
	// ProgressWords is the number of words in a getPlayerProgress result.
	ProgressWords = 7
)

// Method signatures of the ledger contract surface.
const (
	SigStartChallenge     = "startChallenge()"
	SigRecordNpcTalk      = "recordNpcTalk(address)"
	SigGetPlayerProgress  = "getPlayerProgress(address)"
	SigPendingRewardUnits = "pendingRewardUnits(address)"
	SigRedeemMyRewards    = "redeemMyRewards()"
	SigSetGameOperator    = "setGameOperator(address,bool)"
)

// Selector is a 4-byte method id.
type Selector [4]byte

// Hex returns the 0x-prefixed selector.
func (s Selector) Hex() string {
	return fmt.Sprintf("0x%x", s[:])
}

// SelectorOf returns the first four bytes of keccak256(signature).
func SelectorOf(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature))[:4])
	return s
}

var (
	StartChallengeSelector     = SelectorOf(SigStartChallenge)
	RecordNpcTalkSelector      = SelectorOf(SigRecordNpcTalk)
	GetPlayerProgressSelector  = SelectorOf(SigGetPlayerProgress)
	PendingRewardUnitsSelector = SelectorOf(SigPendingRewardUnits)
	RedeemMyRewardsSelector    = SelectorOf(SigRedeemMyRewards)
	SetGameOperatorSelector    = SelectorOf(SigSetGameOperator)
)

// ErrShortCalldata is returned when calldata has no selector.
var ErrShortCalldata = errors.New("calldata shorter than a selector")

var (
	uint256Type, _ = gethabi.NewType("uint256", "", nil)
	boolType, _    = gethabi.NewType("bool", "", nil)
	addressType, _ = gethabi.NewType("address", "", nil)

	progressArgs = gethabi.Arguments{
		{Name: "startedAt", Type: uint256Type},
		{Name: "endsAt", Type: uint256Type},
		{Name: "npcTalks", Type: uint256Type},
		{Name: "rewardPoints", Type: uint256Type},
		{Name: "completed", Type: boolType},
		{Name: "expired", Type: boolType},
		{Name: "claimableUnits", Type: uint256Type},
	}

	// progressWordArgs reads every word as uint256 so booleans decode as
	// zero/non-zero.
	progressWordArgs = func() gethabi.Arguments {
		args := make(gethabi.Arguments, ProgressWords)
		for i := range args {
			args[i] = gethabi.Argument{Type: uint256Type}
		}
		return args
	}()

	uintArgs    = gethabi.Arguments{{Type: uint256Type}}
	addressArgs = gethabi.Arguments{{Type: addressType}}
)

// EncodeProgress packs p as the 7-word getPlayerProgress result.
func EncodeProgress(p ledger.Progress) ([]byte, error) {
	return progressArgs.Pack(
		new(big.Int).SetUint64(p.StartedAt),
		new(big.Int).SetUint64(p.EndsAt),
		new(big.Int).SetUint64(p.ProgressCount),
		new(big.Int).SetUint64(p.RewardPoints),
		p.Completed,
		p.Expired,
		new(big.Int).SetUint64(p.ClaimableUnits),
	)
}

// DecodeProgress unpacks a getPlayerProgress result. Short input is padded
// with zero words; a non-zero boolean word reads as true.
func DecodeProgress(data []byte) (ledger.Progress, error) {
	size := ProgressWords * WordSize
	if len(data) < size {
		padded := make([]byte, size)
		copy(padded, data)
		data = padded
	}

	values, err := progressWordArgs.Unpack(data[:size])
	if err != nil {
		return ledger.Progress{}, fmt.Errorf("failed to unpack progress: %w", err)
	}

	words := make([]*big.Int, ProgressWords)
	for i, v := range values {
		words[i] = v.(*big.Int)
	}

	var p ledger.Progress
	uints := []struct {
		dst  *uint64
		word int
	}{
		{&p.StartedAt, 0},
		{&p.EndsAt, 1},
		{&p.ProgressCount, 2},
		{&p.RewardPoints, 3},
		{&p.ClaimableUnits, 6},
	}
	for _, u := range uints {
		if !words[u.word].IsUint64() {
			return ledger.Progress{}, fmt.Errorf("word %d overflows uint64: %s", u.word, words[u.word])
		}
		*u.dst = words[u.word].Uint64()
	}
	p.Completed = words[4].Sign() != 0
	p.Expired = words[5].Sign() != 0

	return p, nil
}

// EncodeUint packs v as one uint256 word.
func EncodeUint(v uint64) ([]byte, error) {
	return uintArgs.Pack(new(big.Int).SetUint64(v))
}

// SplitCalldata separates the selector from the arguments.
func SplitCalldata(data []byte) (Selector, []byte, error) {
	var s Selector
	if len(data) < len(s) {
		return s, nil, ErrShortCalldata
	}
	copy(s[:], data[:len(s)])
	return s, data[len(s):], nil
}

// EncodeAddressCall builds calldata for a single-address method.
func EncodeAddressCall(selector Selector, addr common.Address) ([]byte, error) {
	args, err := addressArgs.Pack(addr)
	if err != nil {
		return nil, err
	}
	return append(selector[:], args...), nil
}

// DecodeAddressArg unpacks the single address argument of a call.
func DecodeAddressArg(args []byte) (common.Address, error) {
	values, err := addressArgs.Unpack(args)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack address: %w", err)
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected address type %T", values[0])
	}
	return addr, nil
}
