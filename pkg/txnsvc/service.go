// Copyright (c) 2022-present, Shanghai Yunxi Technology Co, Ltd. All rights reserved.
//
// This software (KWDB) is licensed under Mulan PSL v2.
// You can use this software according to the terms and conditions of the Mulan PSL v2.
// You may obtain a copy of Mulan PSL v2 at:
//          http://license.coscl.org.cn/MulanPSL2
// THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
// EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
// MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
// See the Mulan PSL v2 for more details.

// Package txnsvc is the transaction service collaborator (§4.9): it owns
// beginning, periodically committing, and retrying the background scan
// driver's transactions, so the scan driver itself never talks to
// kv.TxnManager directly. Grounded on the teacher's schema changer
// driving its own txn retry loop with util/retry (sql/ts_schema_changer.go).
package txnsvc

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"gitee.com/kwbasedb/onlineschema/pkg/kv"
	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
	"gitee.com/kwbasedb/onlineschema/pkg/util/log"
	"gitee.com/kwbasedb/onlineschema/pkg/util/retry"
)

// Service resolves transactions for the background scan driver and the
// concurrent DML hook against one store.
type Service struct {
	store     kv.StoreAdapter
	txns      kv.TxnManager
	retryOpts retry.Options
}

// defaultRetryOpts backs off quickly since a rollback-class error here
// means "retry with a fresh transaction snapshot", not "wait out
// congestion" — the teacher's schema changer uses a similarly short
// initial backoff for its own txn retry loop.
var defaultRetryOpts = retry.Options{
	InitialBackoff: 5 * time.Millisecond,
	MaxBackoff:     200 * time.Millisecond,
	Multiplier:     2,
	MaxRetries:     10,
}

// New returns a Service driving store's transactions.
func New(store kv.StoreAdapter, txns kv.TxnManager) *Service {
	return &Service{store: store, txns: txns, retryOpts: defaultRetryOpts}
}

// BeginTransaction opens a new transaction.
func (s *Service) BeginTransaction(ctx context.Context) *kv.Txn {
	return s.txns.Begin(ctx)
}

// CommitTransaction commits txn.
func (s *Service) CommitTransaction(ctx context.Context, txn *kv.Txn) error {
	return s.txns.Commit(ctx, txn)
}

// RollbackTransactionIfOpen rolls back txn if non-nil; safe to call with a
// nil txn so cleanup paths don't need their own nil check (§7 "cleanup on
// every exit path").
func (s *Service) RollbackTransactionIfOpen(ctx context.Context, txn *kv.Txn) {
	if txn == nil {
		return
	}
	s.txns.Rollback(ctx, txn)
}

// PeriodicallyCommit implements the scan driver's periodic-commit step
// (§4.5): it commits the current transaction, opens a fresh one, re-opens
// a group scan cursor under plan against the fresh transaction's
// snapshot (which now observes anything concurrently committed by the
// writer path — spec.md §8 scenario 3), and rebinds the cursor to resume
// strictly after watermark.
func (s *Service) PeriodicallyCommit(
	ctx context.Context, txn *kv.Txn, plan kv.GroupScanPlan, watermark sqlbase.HKey,
) (*kv.Txn, kv.Cursor, error) {
	if err := s.txns.Commit(ctx, txn); err != nil {
		return nil, nil, errors.Wrap(err, "periodic commit")
	}
	newTxn := s.txns.Begin(ctx)
	cur, err := s.store.OpenGroupScan(ctx, newTxn, plan)
	if err != nil {
		s.txns.Rollback(ctx, newTxn)
		return nil, nil, errors.Wrap(err, "reopen group scan after periodic commit")
	}
	if err := cur.Rebind(ctx, watermark); err != nil {
		cur.Close(ctx)
		s.txns.Rollback(ctx, newTxn)
		return nil, nil, errors.Wrap(err, "rebind cursor after periodic commit")
	}
	return newTxn, cur, nil
}

// CommitOrRetryTransaction commits txn, retrying with fresh backoff on a
// rollback-class error (§4.5 "Rollback recovery") up to the service's
// retry budget. fn is invoked to rebuild whatever per-attempt state the
// caller needs (typically: reopen the cursor and rebind to the last
// watermark) before the next commit attempt.
func (s *Service) CommitOrRetryTransaction(
	ctx context.Context, txn *kv.Txn, fn func(ctx context.Context) (*kv.Txn, error),
) (*kv.Txn, error) {
	for r := retry.StartWithCtx(ctx, s.retryOpts); r.Next(); {
		err := s.txns.Commit(ctx, txn)
		if err == nil {
			return txn, nil
		}
		if !kv.IsRollbackClass(err) {
			return nil, err
		}
		log.Warningf(ctx, "online schema change: transaction rolled back, retrying (attempt %d): %v", r.CurrentAttempt(), err)
		txn, err = fn(ctx)
		if err != nil {
			return nil, err
		}
	}
	return nil, errors.New("online schema change: exhausted retries committing transaction")
}
