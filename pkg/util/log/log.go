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

// Package log is a small ambient logger with the call shape of the
// server-wide util/log package: callers pass a context first so that
// log tags attached via logtags travel with every line. It does not
// implement sinks, rotation, or severity files; it writes to stderr
// through the standard library logger.
package log

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/cockroachdb/logtags"
)

var std = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

// verbosity is the process-wide V() threshold, set via SetVModule.
var verbosity int32

// SetVModule sets the verbosity threshold consulted by V and VEventf.
func SetVModule(level int32) { verbosity = level }

// V reports whether logging at the given verbosity level is enabled.
func V(level int32) bool { return level <= verbosity }

func prefix(ctx context.Context) string {
	if tags := logtags.FromContext(ctx); tags != nil {
		return "[" + tags.String() + "] "
	}
	return ""
}

// Infof logs an informational message, tagged with any logtags on ctx.
func Infof(ctx context.Context, format string, args ...interface{}) {
	std.Output(2, "INFO "+prefix(ctx)+fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func Info(ctx context.Context, args ...interface{}) {
	std.Output(2, "INFO "+prefix(ctx)+fmt.Sprint(args...))
}

// Warningf logs a warning message.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	std.Output(2, "WARN "+prefix(ctx)+fmt.Sprintf(format, args...))
}

// Errorf logs an error message.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	std.Output(2, "ERROR "+prefix(ctx)+fmt.Sprintf(format, args...))
}

// Error logs an error value.
func Error(ctx context.Context, args ...interface{}) {
	std.Output(2, "ERROR "+prefix(ctx)+fmt.Sprint(args...))
}

// Fatalf logs a message and terminates the process.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	std.Output(2, "FATAL "+prefix(ctx)+fmt.Sprintf(format, args...))
	os.Exit(1)
}

// VEventf logs format through Infof when the given verbosity is enabled.
// It does not record tracing events.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if !V(level) {
		return
	}
	Infof(ctx, format, args...)
}
