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

// Package retry implements a simple exponential-backoff retry loop, in the
// same shape as the server-wide retry package: construct Options, obtain an
// iterator with Start or StartWithCtx, and loop "for r := ...; r.Next(); {}".
package retry

import (
	"context"
	"time"
)

// Options configures a retry loop's backoff schedule.
type Options struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	MaxRetries     int
}

func (o Options) multiplier() float64 {
	if o.Multiplier <= 0 {
		return 2
	}
	return o.Multiplier
}

// Retry is an iterator over a backoff schedule.
type Retry struct {
	opts        Options
	ctx         context.Context
	currentAttempt int
	backoff     time.Duration
}

// Start returns a Retry iterator with no cancellation context.
func Start(opts Options) *Retry {
	return StartWithCtx(context.Background(), opts)
}

// StartWithCtx returns a Retry iterator bound to ctx; Next returns false
// early if ctx is canceled.
func StartWithCtx(ctx context.Context, opts Options) *Retry {
	return &Retry{opts: opts, ctx: ctx}
}

// Next blocks for the next backoff interval (skipped on the first call) and
// reports whether another attempt should be made.
func (r *Retry) Next() bool {
	if r.opts.MaxRetries > 0 && r.currentAttempt > r.opts.MaxRetries {
		return false
	}
	if r.currentAttempt > 0 {
		select {
		case <-r.ctx.Done():
			return false
		case <-time.After(r.backoff):
		}
		r.backoff = time.Duration(float64(r.backoff) * r.opts.multiplier())
		if r.opts.MaxBackoff > 0 && r.backoff > r.opts.MaxBackoff {
			r.backoff = r.opts.MaxBackoff
		}
	} else {
		r.backoff = r.opts.InitialBackoff
		if r.backoff == 0 {
			r.backoff = 50 * time.Millisecond
		}
	}
	r.currentAttempt++
	return true
}

// CurrentAttempt returns the 1-based index of the current attempt.
func (r *Retry) CurrentAttempt() int { return r.currentAttempt }
