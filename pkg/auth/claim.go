// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package auth verifies that a claim was signed by the player it names.
package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrMissingSignature is returned when no signature accompanies a claim.
	ErrMissingSignature = errors.New("missing signature")
	// ErrInvalidSignature is returned for malformed signatures.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrSignerMismatch is returned when the signature was made by another key.
	ErrSignerMismatch = errors.New("signature does not match player")
)

// ClaimMessage is the text a player signs to redeem rewards in a room.
func ClaimMessage(roomName, player string) string {
	return fmt.Sprintf("claim:%s:%s", roomName, strings.ToLower(player))
}

// RecoverSigner returns the address that personal_sign'ed message.
// Both 0/1 and 27/28 recovery ids are accepted.
func RecoverSigner(message string, signature string) (common.Address, error) {
	if strings.TrimSpace(signature) == "" {
		return common.Address{}, ErrMissingSignature
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyClaim checks that signature is player's signature of the claim message.
func VerifyClaim(roomName, player, signature string) error {
	if !common.IsHexAddress(player) {
		return fmt.Errorf("%w: bad player address", ErrInvalidSignature)
	}

	signer, err := RecoverSigner(ClaimMessage(roomName, player), signature)
	if err != nil {
		return err
	}
	if signer != common.HexToAddress(player) {
		return ErrSignerMismatch
	}
	return nil
}

// SignClaim signs the claim message with key the way wallets do.
// Game tooling and tests use it to produce claims.
func SignClaim(key *ecdsa.PrivateKey, roomName, player string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(ClaimMessage(roomName, player))), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
