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

// Package types is a minimal stand-in for the SQL type system's scalar
// type catalog: enough type classes to exercise column-type casts and
// default-value synthesis in the online schema change engine. The full
// parser/planner type system (decimal precision, collations, array and
// tuple types, etc.) is out of scope.
package types

import "fmt"

// Class is a scalar type class.
type Class int

// The type classes the online engine needs to reason about: enough to
// exercise widening casts (INT -> BIGINT), string parsing of literal
// defaults, and NOT NULL / domain checks.
const (
	Unknown Class = iota
	Bool
	Int
	BigInt
	String
	Timestamp
)

// T is a column's scalar type: a class plus a Nullable flag, carried
// separately from the class so "INT" and "INT NOT NULL" compare equal
// under the class-only comparisons the projection compiler performs
// (the spec's cast-resolution looks only at typeClass, ignoring
// nullability).
type T struct {
	Class    Class
	Nullable bool
}

// String renders the type for diagnostics.
func (t T) String() string {
	names := [...]string{"UNKNOWN", "BOOL", "INT", "BIGINT", "STRING", "TIMESTAMP"}
	name := "UNKNOWN"
	if int(t.Class) < len(names) {
		name = names[t.Class]
	}
	if t.Nullable {
		return name
	}
	return name + " NOT NULL"
}

// SameClass reports whether t and other share a type class, ignoring
// nullability — the comparison the spec's projection compiler uses to
// decide whether a cast is required (§4.2 step 3).
func (t T) SameClass(other T) bool { return t.Class == other.Class }

// FromString parses a literal default value in the type's own syntax,
// grounded on the teacher's MakeDefaultExprs parsing a literal default
// through the SQL expression parser (sqlbase/default_exprs.go); here
// reduced to direct conversions per class since there is no general
// expression parser in scope.
func (t T) FromString(literal string) (interface{}, error) {
	switch t.Class {
	case Bool:
		switch literal {
		case "true", "t", "1":
			return true, nil
		case "false", "f", "0":
			return false, nil
		}
		return nil, fmt.Errorf("cannot parse %q as BOOL", literal)
	case Int, BigInt:
		var n int64
		if _, err := fmt.Sscanf(literal, "%d", &n); err != nil {
			return nil, fmt.Errorf("cannot parse %q as %s: %w", literal, t, err)
		}
		return n, nil
	case String:
		return literal, nil
	default:
		return literal, nil
	}
}

// Zero returns the type's zero value: false, int64(0) or "", and nil for
// the classes that have none.
func (t T) Zero() interface{} {
	switch t.Class {
	case Bool:
		return false
	case Int, BigInt:
		return int64(0)
	case String:
		return ""
	default:
		return nil
	}
}
