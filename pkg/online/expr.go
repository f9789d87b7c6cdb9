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
	"sync"

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
	"gitee.com/kwbasedb/onlineschema/pkg/types"
)

// Expr is a scalar expression computing one new-schema field from a
// pre-image row — a projection's per-column program (§3
// ProjectedRowType, §4.2). Expressions are evaluated against Bindings so
// that sequence expressions advance and function expressions observe
// their environment (§4.4), matching the teacher's TypedExpr evaluation
// shape (sqlbase/default_exprs.go) reduced to this module's closed set
// of expression kinds.
type Expr interface {
	Eval(ctx context.Context, bindings *Bindings, row sqlbase.Row) (interface{}, error)
	ResultType() types.T
}

// FieldExpr reads one field of the pre-image row unchanged (§4.2 step 3,
// no cast needed).
type FieldExpr struct {
	Pos int
	Typ types.T
}

// Eval implements Expr.
func (e FieldExpr) Eval(ctx context.Context, b *Bindings, row sqlbase.Row) (interface{}, error) {
	return row.Field(e.Pos), nil
}

// ResultType implements Expr.
func (e FieldExpr) ResultType() types.T { return e.Typ }

// CastExpr wraps a source expression in a cast to Typ (§4.2 step 3). NULL
// propagates without invoking Cast.
type CastExpr struct {
	Src  Expr
	Cast types.CastFunc
	Typ  types.T
}

// Eval implements Expr.
func (e CastExpr) Eval(ctx context.Context, b *Bindings, row sqlbase.Row) (interface{}, error) {
	v, err := e.Src.Eval(ctx, b, row)
	if err != nil || v == nil {
		return v, err
	}
	return e.Cast(v)
}

// ResultType implements Expr.
func (e CastExpr) ResultType() types.T { return e.Typ }

// LiteralExpr is a constant value — the typed-null or typed-literal
// default expressions of §4.3.
type LiteralExpr struct {
	Value interface{}
	Typ   types.T
}

// Eval implements Expr.
func (e LiteralExpr) Eval(ctx context.Context, b *Bindings, row sqlbase.Row) (interface{}, error) {
	return e.Value, nil
}

// ResultType implements Expr.
func (e LiteralExpr) ResultType() types.T { return e.Typ }

// SeqNextExpr is a sequence-next-value expression bound to an identity
// generator (§4.3). Name scopes the generator to one (table, column)
// pair across the lifetime of the online session.
type SeqNextExpr struct {
	Name string
	Typ  types.T
}

// Eval implements Expr.
func (e SeqNextExpr) Eval(ctx context.Context, b *Bindings, row sqlbase.Row) (interface{}, error) {
	return b.Generator(e.Name).Next(), nil
}

// ResultType implements Expr.
func (e SeqNextExpr) ResultType() types.T { return e.Typ }

// ScalarCallExpr resolves a zero-argument default function, e.g.
// CURRENT_TIMESTAMP (§4.3).
type ScalarCallExpr struct {
	Fn  types.ScalarFunc
	Typ types.T
}

// Eval implements Expr.
func (e ScalarCallExpr) Eval(ctx context.Context, b *Bindings, row sqlbase.Row) (interface{}, error) {
	return e.Fn.Eval()
}

// ResultType implements Expr.
func (e ScalarCallExpr) ResultType() types.T { return e.Typ }

// SequenceGenerator hands out strictly increasing int64 values; safe for
// concurrent Next callers since a sequence may back an identity column
// touched by both the scanner and writer paths in different
// transactions.
type SequenceGenerator struct {
	mu   sync.Mutex
	next int64
}

// Next returns the generator's next value.
func (g *SequenceGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}

// Bindings holds the per-online-session environment threaded through
// expression evaluation: today, just the identity-column sequence
// generators (§4.4 "threading bindings/context so sequence expressions
// advance").
type Bindings struct {
	mu         sync.Mutex
	generators map[string]*SequenceGenerator
}

// NewBindings returns an empty Bindings.
func NewBindings() *Bindings {
	return &Bindings{generators: map[string]*SequenceGenerator{}}
}

// Generator returns the named sequence generator, creating it on first
// use.
func (b *Bindings) Generator(name string) *SequenceGenerator {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.generators[name]
	if !ok {
		g = &SequenceGenerator{}
		b.generators[name] = g
	}
	return g
}
