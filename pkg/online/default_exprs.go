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
	"fmt"

	"gitee.com/kwbasedb/onlineschema/pkg/sqlbase"
	"gitee.com/kwbasedb/onlineschema/pkg/types"
)

// synthesizeDefault builds the default expression for a new column that
// has no old-side source (§4.3), grounded on the teacher's
// MakeDefaultExprs (sqlbase/default_exprs.go), reduced from general
// expression parsing to this module's closed set of default kinds.
func synthesizeDefault(tableID sqlbase.ID, col sqlbase.ColumnDescriptor, registry *types.Registry) (Expr, error) {
	switch {
	case col.IsIdentity:
		name := fmt.Sprintf("table:%d:column:%d", tableID, col.ID)
		return SeqNextExpr{Name: name, Typ: col.Type}, nil

	case col.DefaultFunc != "":
		fn, ok := registry.ResolveScalar(col.DefaultFunc)
		if !ok {
			return nil, &ProjectionError{TableID: tableID, Column: col.Name,
				Reason: fmt.Sprintf("unresolvable default function %q", col.DefaultFunc)}
		}
		if fn.ResultType.Class == col.Type.Class {
			return ScalarCallExpr{Fn: fn, Typ: col.Type}, nil
		}
		cast, ok := registry.ResolveCast(fn.ResultType.Class, col.Type.Class)
		if !ok {
			return nil, &ProjectionError{TableID: tableID, Column: col.Name,
				Reason: fmt.Sprintf("no cast from %s to %s for default function %q", fn.ResultType, col.Type, col.DefaultFunc)}
		}
		return CastExpr{Src: ScalarCallExpr{Fn: fn, Typ: fn.ResultType}, Cast: cast, Typ: col.Type}, nil

	case col.DefaultLiteral != nil:
		v, err := col.Type.FromString(*col.DefaultLiteral)
		if err != nil {
			return nil, &ProjectionError{TableID: tableID, Column: col.Name, Reason: err.Error()}
		}
		return LiteralExpr{Value: v, Typ: col.Type}, nil

	default:
		return LiteralExpr{Value: nil, Typ: col.Type}, nil
	}
}
