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

package settings

// ConcurrentDMLDisabled, when true, makes the concurrent DML hook fatal on
// every fire: the server is configured to disallow live writes while an
// online schema change is in progress.
var ConcurrentDMLDisabled = RegisterBoolSetting(
	"sql.online_schema_change.concurrent_dml.disabled", false,
)

// ScanBatchRows is the number of rows the background scan driver processes
// between calls to the transaction service's periodicallyCommit.
var ScanBatchRows = RegisterIntSetting(
	"sql.online_schema_change.scan_batch_rows", 100,
)

// ScanRateLimit bounds the rate, in rows/sec, at which the background scan
// driver invokes its row handler. Zero disables throttling.
var ScanRateLimit = RegisterIntSetting(
	"sql.online_schema_change.scan_rate_limit", 0,
)
