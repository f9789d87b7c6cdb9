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

package online

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"gitee.com/kwbasedb/onlineschema/pkg/kv"
	"gitee.com/kwbasedb/onlineschema/pkg/settings"
	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
	"gitee.com/kwbasedb/onlineschema/pkg/txnsvc"
	"gitee.com/kwbasedb/onlineschema/pkg/util/log"
	"gitee.com/kwbasedb/onlineschema/pkg/util/retry"
)

// TrackerIteratorFunc resolves the hKey tracker iterator for one table,
// starting at or after start (nil to start from the beginning). A nil
// TrackerIteratorFunc given to RunPlan means "no row type here has a
// backing table that concurrent DML could have touched" — every row
// behaves as if the false checker had answered it (§4.5).
type TrackerIteratorFunc func(tableID sqlbase.ID, start sqlbase.HKey) sqlbase.HKeyIterator

// RowHandler is invoked once per row the scan driver decides needs
// migrating. It is responsible for actually writing newRow (and any
// index maintenance) within txn — the driver only decides which rows to
// visit and recovers from rollbacks around whatever the handler does.
type RowHandler func(ctx context.Context, txn *kv.Txn, oldRow, newRow sqlbase.Row) error

// PlanSpec describes one background scan (§4.5): the group scan to run,
// the schema it targets, and, per table, the change-set and (if needed)
// the pre-image table descriptor the Transform Cache compiles a
// projection against.
type PlanSpec struct {
	GroupPlan  kv.GroupScanPlan
	Schema     *sqlbase.Schema
	ChangeSets map[sqlbase.ID]sqlbase.ChangeSet
	OldTables  map[sqlbase.ID]*sqlbase.TableDescriptor
}

// ScanDriver runs the background scan that rebuilds indexes and rewrites
// rows under live DML traffic (§2 component 6 "Background Scan Driver").
type ScanDriver struct {
	store     kv.StoreAdapter
	txns      *txnsvc.Service
	cache     *TransformCache
	bindings  *Bindings
	sv        *settings.Values
	retryOpts retry.Options
}

// NewScanDriver returns a ScanDriver over store, resolving transactions
// through txns and compiling transforms through cache.
func NewScanDriver(store kv.StoreAdapter, txns *txnsvc.Service, cache *TransformCache, bindings *Bindings, sv *settings.Values) *ScanDriver {
	return &ScanDriver{
		store:    store,
		txns:     txns,
		cache:    cache,
		bindings: bindings,
		sv:       sv,
		retryOpts: retry.Options{
			InitialBackoff: 5 * time.Millisecond,
			MaxBackoff:     200 * time.Millisecond,
			Multiplier:     2,
			MaxRetries:     10,
		},
	}
}

// RunPlan executes one background scan to completion (§4.5): it walks
// spec's group scan in ascending hKey order, skips any row the writer
// path has already migrated (the per-table checker backed by
// trackerIter), transforms and hands off the rest to handler, commits
// periodically per the sql.online_schema_change.scan_batch_rows setting,
// and recovers from rollback-class errors by reopening a fresh
// transaction and rebinding to the last successfully committed hKey.
func (d *ScanDriver) RunPlan(ctx context.Context, spec PlanSpec, trackerIter TrackerIteratorFunc, handler RowHandler) (err error) {
	txn := d.txns.BeginTransaction(ctx)
	committed := false
	defer func() {
		if !committed {
			d.txns.RollbackTransactionIfOpen(ctx, txn)
		}
	}()

	cur, err := d.store.OpenGroupScan(ctx, txn, spec.GroupPlan)
	if err != nil {
		return errors.Wrap(err, "opening background scan")
	}

	checkers := map[sqlbase.ID]rowChecker{}
	var watermark, last sqlbase.HKey
	var rowsSinceCommit int64
	batchRows := settings.ScanBatchRows.Get(d.sv)

	var limiter *rate.Limiter
	if rps := settings.ScanRateLimit.Get(d.sv); rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}

	for {
		row, ok, nerr := cur.Next(ctx)
		if nerr != nil {
			txn, cur, err = d.recoverFromRollback(ctx, txn, spec.GroupPlan, watermark, nerr)
			if err != nil {
				return err
			}
			checkers = map[sqlbase.ID]rowChecker{}
			continue
		}
		if !ok {
			break
		}

		tableID := row.RowType().TableID
		chk, have := checkers[tableID]
		if !have {
			if trackerIter == nil || !row.RowType().HasTable() {
				chk = falseChecker{}
			} else {
				chk = newChecker(trackerIter(tableID, nil))
			}
			checkers[tableID] = chk
		}
		if chk.seen(row.HKey()) {
			// The concurrent DML hook already migrated this row (§4.5);
			// the scanner must not redo the work.
			last = row.HKey()
			continue
		}

		cs, ok := spec.ChangeSets[tableID]
		if !ok {
			return errors.Newf("online: scan produced a row for table %d with no change-set", tableID)
		}
		transform, terr := d.cache.Get(spec.Schema, spec.OldTables[tableID], cs)
		if terr != nil {
			return terr
		}
		newRow, terr := transform.Apply(ctx, d.bindings, row)
		if terr != nil {
			// Constraint violations and projection errors are fatal: the
			// session cannot proceed (spec.md §8 scenario 2).
			return terr
		}

		if limiter != nil {
			if werr := limiter.Wait(ctx); werr != nil {
				return werr
			}
		}

		if herr := handler(ctx, txn, row, newRow); herr != nil {
			if kv.IsRollbackClass(herr) {
				txn, cur, err = d.recoverFromRollback(ctx, txn, spec.GroupPlan, watermark, herr)
				if err != nil {
					return err
				}
				checkers = map[sqlbase.ID]rowChecker{}
				// watermark stays put: Rebind resumes strictly after it,
				// so the row the failed handler never committed will be
				// re-yielded by the fresh cursor.
				continue
			}
			return herr
		}

		last = row.HKey()
		rowsSinceCommit++
		if rowsSinceCommit >= batchRows {
			newTxn, newCur, perr := d.txns.PeriodicallyCommit(ctx, txn, spec.GroupPlan, last)
			if perr != nil {
				return perr
			}
			watermark = last
			checkers = map[sqlbase.ID]rowChecker{}
			txn, cur = newTxn, newCur
			rowsSinceCommit = 0
		}
	}

	if cerr := d.txns.CommitTransaction(ctx, txn); cerr != nil {
		if !kv.IsRollbackClass(cerr) {
			return cerr
		}
		var recoveredCur kv.Cursor
		txn, recoveredCur, err = d.recoverFromRollback(ctx, txn, spec.GroupPlan, watermark, cerr)
		if err != nil {
			return err
		}
		recoveredCur.Close(ctx)
		if cerr := d.txns.CommitTransaction(ctx, txn); cerr != nil {
			return cerr
		}
	}
	committed = true
	cur.Close(ctx)
	return nil
}

// recoverFromRollback discards txn, then retries opening a fresh
// transaction and rebinding a new cursor to resume strictly after
// watermark (§4.5 "Rollback recovery", spec.md §8 scenario 5) until it
// succeeds or the driver's retry budget is exhausted.
func (d *ScanDriver) recoverFromRollback(
	ctx context.Context, txn *kv.Txn, plan kv.GroupScanPlan, watermark sqlbase.HKey, cause error,
) (*kv.Txn, kv.Cursor, error) {
	if !kv.IsRollbackClass(cause) {
		return nil, nil, cause
	}
	d.txns.RollbackTransactionIfOpen(ctx, txn)

	var lastErr error
	for r := retry.StartWithCtx(ctx, d.retryOpts); r.Next(); {
		log.Warningf(ctx, "online schema change: recovering from rollback, attempt %d: %v", r.CurrentAttempt(), cause)
		newTxn := d.txns.BeginTransaction(ctx)
		cur, err := d.store.OpenGroupScan(ctx, newTxn, plan)
		if err != nil {
			d.txns.RollbackTransactionIfOpen(ctx, newTxn)
			lastErr = err
			continue
		}
		if err := cur.Rebind(ctx, watermark); err != nil {
			cur.Close(ctx)
			d.txns.RollbackTransactionIfOpen(ctx, newTxn)
			lastErr = err
			continue
		}
		return newTxn, cur, nil
	}
	return nil, nil, errors.Wrap(lastErr, "online schema change: exhausted retries recovering from rollback")
}
