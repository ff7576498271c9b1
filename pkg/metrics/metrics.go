// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package metrics holds the Prometheus collectors of the challenge ledger.
// Collectors are registered by the metrics server.
package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "challenge_ledger"

// Operation results used as the "result" label.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	// OperationsTotal counts ledger operations by name and outcome.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of ledger operations",
		},
		[]string{"operation", "result"},
	)

	// RedeemedWeiTotal sums the wei paid out by redemptions.
	RedeemedWeiTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redeemed_wei_total",
			Help:      "Total amount of wei paid out by redemptions",
		},
	)

	// PoolBalanceWei is the last observed pooled balance.
	PoolBalanceWei = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_balance_wei",
			Help:      "Last observed pooled balance in wei",
		},
	)

	// HookActionsTotal counts hook action executions by event type and outcome.
	HookActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hook_actions_total",
			Help:      "Total number of hook action executions",
		},
		[]string{"event", "result"},
	)
)

// Collectors returns every collector of this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{OperationsTotal, RedeemedWeiTotal, PoolBalanceWei, HookActionsTotal}
}

// ObserveOperation increments OperationsTotal for operation with result.
func ObserveOperation(operation, result string) {
	OperationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveRedeemed adds a redeemed amount to RedeemedWeiTotal.
func ObserveRedeemed(amount *big.Int) {
	f, _ := new(big.Float).SetInt(amount).Float64()
	RedeemedWeiTotal.Add(f)
}

// ObservePool records the current pool balance.
func ObservePool(balance *big.Int) {
	f, _ := new(big.Float).SetInt(balance).Float64()
	PoolBalanceWei.Set(f)
}

// ObserveHookAction increments HookActionsTotal for event with result.
func ObserveHookAction(event, result string) {
	HookActionsTotal.WithLabelValues(event, result).Inc()
}
