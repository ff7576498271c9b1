// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/sirupsen/logrus"
)

// InitLedger creates the ledger and authorizes the configured operators. The
// session mirror's operator is always authorized so the mirror can record
// progress on a fresh store.
func InitLedger(
	ctx context.Context,
	store ledger.Store,
	payer ledger.Payer,
	cfg ledger.Config,
	operators []string,
	opts ...ledger.Option,
) (*ledger.Ledger, error) {
	l, err := ledger.New(store, payer, cfg, opts...)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, op := range operators {
		op = strings.TrimSpace(op)
		if op == "" {
			continue
		}
		normalized, err := ledger.NormalizeAddress(op)
		if err != nil {
			return nil, fmt.Errorf("invalid operator %q: %w", op, err)
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		if err := l.SetGameOperator(ctx, l.Owner(), normalized, true); err != nil {
			return nil, fmt.Errorf("failed to authorize operator %s: %w", normalized, err)
		}
		logrus.Infof("authorized operator %s", normalized)
	}

	logrus.Infof("initialized ledger (owner: %s, policy: %d events / %s)",
		l.Owner(), l.Policy().CompletionThreshold, l.Policy().Duration)
	return l, nil
}
