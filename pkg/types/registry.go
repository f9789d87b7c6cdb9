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

package types

import "fmt"

// CastFunc converts a value of one type class to another. It returns an
// error if the source value cannot be represented in the target class.
type CastFunc func(v interface{}) (interface{}, error)

// ScalarFunc is a zero-argument scalar function, e.g. CURRENT_TIMESTAMP,
// resolved by name for default-value synthesis (§4.3). Preptime
// evaluation only: the online engine never calls functions that take
// row-dependent arguments when synthesizing a default.
type ScalarFunc struct {
	Name       string
	ResultType T
	Eval       func() (interface{}, error)
}

// Registry is the cast resolver by (fromClass, toClass) and the
// scalar-overload resolver by name, standing in for the parser/planner's
// cast and builtin-function registries (§6 "Consumed from the types
// registry").
type Registry struct {
	casts   map[[2]Class]CastFunc
	scalars map[string]ScalarFunc
}

// NewRegistry returns a Registry pre-populated with three casts: INT ->
// BIGINT (spec.md §8 scenario 4), BIGINT -> INT and INT -> STRING. It
// registers no scalar functions; those are added with RegisterScalar.
func NewRegistry() *Registry {
	r := &Registry{
		casts:   map[[2]Class]CastFunc{},
		scalars: map[string]ScalarFunc{},
	}
	r.RegisterCast(Int, BigInt, func(v interface{}) (interface{}, error) {
		switch n := v.(type) {
		case int64:
			return n, nil
		case int32:
			return int64(n), nil
		default:
			return nil, fmt.Errorf("cannot cast %T to BIGINT", v)
		}
	})
	r.RegisterCast(BigInt, Int, func(v interface{}) (interface{}, error) {
		switch n := v.(type) {
		case int64:
			return n, nil
		default:
			return nil, fmt.Errorf("cannot cast %T to INT", v)
		}
	})
	r.RegisterCast(Int, String, func(v interface{}) (interface{}, error) {
		return fmt.Sprintf("%v", v), nil
	})
	return r
}

// RegisterCast installs a conversion from fromClass to toClass.
func (r *Registry) RegisterCast(from, to Class, fn CastFunc) {
	r.casts[[2]Class{from, to}] = fn
}

// ResolveCast looks up the cast from fromClass to toClass. It returns
// ok=false when no such cast is registered; the caller (the projection
// compiler, §4.2 step 3) treats that as a fatal schema-incompatible error.
func (r *Registry) ResolveCast(from, to Class) (CastFunc, bool) {
	fn, ok := r.casts[[2]Class{from, to}]
	return fn, ok
}

// RegisterScalar installs a zero-argument scalar function by name, used
// for DEFAULT expressions like CURRENT_TIMESTAMP (§4.3).
func (r *Registry) RegisterScalar(fn ScalarFunc) {
	r.scalars[fn.Name] = fn
}

// ResolveScalar looks up a zero-argument scalar function by name.
func (r *Registry) ResolveScalar(name string) (ScalarFunc, bool) {
	fn, ok := r.scalars[name]
	return fn, ok
}
