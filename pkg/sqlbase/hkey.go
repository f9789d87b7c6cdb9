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

package sqlbase

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// HKey is the ordered byte key identifying a row's position within its
// group: the concatenated ancestor primary keys (§3, §GLOSSARY). HKey
// values compare with bytes.Compare, which is what gives the scanner its
// ascending-order guarantee (§4.5, §5).
type HKey []byte

// Compare orders two hKeys lexicographically.
func (k HKey) Compare(other HKey) int { return bytes.Compare(k, other) }

// Less reports whether k sorts strictly before other.
func (k HKey) Less(other HKey) bool { return k.Compare(other) < 0 }

// String renders an hKey for diagnostics.
func (k HKey) String() string { return fmt.Sprintf("%x", []byte(k)) }

// EncodeHKey builds an hKey from a table id and an ordered list of
// primary-key integer components. It is a minimal encoding sufficient to
// preserve ascending order for the integer primary keys this module's
// reference tables use; a production on-disk encoding is out of scope
// (§1 "Out of scope collaborators").
func EncodeHKey(tableID ID, pk ...int64) HKey {
	buf := make([]byte, 0, 4+8*len(pk))
	var tmp [8]byte
	binary.BigEndian.PutUint32(tmp[:4], uint32(tableID))
	buf = append(buf, tmp[:4]...)
	for _, v := range pk {
		// Flip the sign bit so two's-complement integers sort correctly
		// as unsigned big-endian bytes, the same trick the teacher's
		// key-encoding package (sql/colencoding) uses for ascending
		// order over signed integers.
		binary.BigEndian.PutUint64(tmp[:], uint64(v)^(1<<63))
		buf = append(buf, tmp[:]...)
	}
	return HKey(buf)
}
