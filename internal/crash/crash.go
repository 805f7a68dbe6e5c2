/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic at the top of the CLI or UI into a crash
// report. When a session is attached, the annotations in memory are written
// next to the report so no marks are lost.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "redactor/internal/log"
	"redactor/internal/telemetry"
	"redactor/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Context describes what was being worked on when a panic happened.
// All fields are optional.
type Context struct {
	// Dir receives the report; os.TempDir() when empty.
	Dir string
	// Document is the path of the open document.
	Document string
	// Session serializes the current annotations.
	Session func() ([]byte, error)
}

// Recover captures a panic, logs it with the stack, writes a report and a
// session dump, and exits with code 2.
//
// Usage: defer crash.Recover(cc)
func Recover(cc *Context) {
	if r := recover(); r != nil {
		handle(cc, r, debug.Stack())
	}
}

func handle(cc *Context, r any, stack []byte) {
	l := applog.WithComponent("crash")
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(cc, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if cc != nil && cc.Session != nil {
		if path, err := writeSession(cc); err != nil {
			l.Error("session dump failed", slog.Any("err", err))
		} else {
			l.Info("session dump written", slog.String("path", path))
			_, _ = fmt.Fprintf(os.Stderr, "Your annotations were saved to: %s\n", path)
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func reportDir(cc *Context) string {
	if cc != nil && cc.Dir != "" {
		_ = os.MkdirAll(cc.Dir, 0o755)
		return cc.Dir
	}
	return os.TempDir()
}

func stamp() string { return time.Now().Format("20060102-150405") }

func writeReport(cc *Context, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(reportDir(cc), fmt.Sprintf("redactor-crash-%s.log", stamp()))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Redactor Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if cc != nil && cc.Document != "" {
		_, _ = fmt.Fprintf(&buf, "Document: %s\n", cc.Document)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.Default().UploadCrash(buf.Bytes())
	return path, nil
}

func writeSession(cc *Context) (string, error) {
	b, err := cc.Session()
	if err != nil {
		return "", fmt.Errorf("serialize session: %w", err)
	}
	path := filepath.Join(reportDir(cc), fmt.Sprintf("redactor-session-%s.json", stamp()))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
