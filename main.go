// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"

	"github.com/AccelByte/extend-challenge-ledger/internal/app"
	"github.com/AccelByte/extend-challenge-ledger/internal/config"
	"github.com/AccelByte/extend-challenge-ledger/pkg/common"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Infof("starting challenge ledger..")

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}
	common.ConfigureLogging(cfg.LogLevel, cfg.Environment)

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to initialize application: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		logrus.Fatalf("application error: %v", err)
	}
}
