// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides a small context-attached logging facade used
// throughout the memory model and runtime. It intentionally does not
// attempt to be a general purpose structured-logging system: messages
// are severity-tagged, formatted printf-style and delivered to a
// Handler installed on the context.
package log

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Message is a single logged record.
type Message struct {
	Time        time.Time
	Severity    Severity
	Text        string
	StopProcess bool
}

// Handler receives log Messages. Handle must not retain m after it returns.
type Handler interface {
	Handle(m *Message)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(m *Message)

// Handle implements Handler.
func (f HandlerFunc) Handle(m *Message) { f(m) }

// Std returns a Handler that writes formatted messages to os.Stderr.
func Std() Handler {
	return HandlerFunc(func(m *Message) {
		fmt.Fprintf(os.Stderr, "%s [%s] %s\n", m.Time.Format(time.RFC3339), m.Severity, m.Text)
	})
}

type handlerKeyTy string

const handlerKey = handlerKeyTy("log.handler")

// PutHandler attaches a Handler to ctx, returning the derived context.
func PutHandler(ctx context.Context, h Handler) context.Context {
	return context.WithValue(ctx, handlerKey, h)
}

// GetHandler returns the Handler attached to ctx, or nil.
func GetHandler(ctx context.Context) Handler {
	if h, ok := ctx.Value(handlerKey).(Handler); ok {
		return h
	}
	return nil
}

// Logger emits Messages to whatever Handler is installed on its context.
type Logger struct {
	ctx context.Context
}

// From returns a Logger bound to the Handler installed on ctx.
func From(ctx context.Context) Logger {
	return Logger{ctx: ctx}
}

func (l Logger) emit(s Severity, stopProcess bool, format string, args ...interface{}) {
	h := GetHandler(l.ctx)
	if h == nil {
		return
	}
	h.Handle(&Message{
		Time:        time.Now(),
		Severity:    s,
		Text:        fmt.Sprintf(format, args...),
		StopProcess: stopProcess,
	})
}

// D logs a debug message.
func (l Logger) D(format string, args ...interface{}) { l.emit(Debug, false, format, args...) }

// I logs an info message.
func (l Logger) I(format string, args ...interface{}) { l.emit(Info, false, format, args...) }

// W logs a warning message.
func (l Logger) W(format string, args ...interface{}) { l.emit(Warning, false, format, args...) }

// E logs an error message.
func (l Logger) E(format string, args ...interface{}) { l.emit(Error, false, format, args...) }

// F logs a fatal message. If stopProcess is true the caller is expected to
// abort the process after the message has been recorded.
func (l Logger) F(stopProcess bool, format string, args ...interface{}) {
	l.emit(Fatal, stopProcess, format, args...)
}

// D logs a debug message to the Handler on ctx.
func D(ctx context.Context, format string, args ...interface{}) { From(ctx).D(format, args...) }

// I logs an info message to the Handler on ctx.
func I(ctx context.Context, format string, args ...interface{}) { From(ctx).I(format, args...) }

// W logs a warning message to the Handler on ctx.
func W(ctx context.Context, format string, args ...interface{}) { From(ctx).W(format, args...) }

// E logs an error message to the Handler on ctx.
func E(ctx context.Context, format string, args ...interface{}) { From(ctx).E(format, args...) }

// F logs a fatal message to the Handler on ctx.
func F(ctx context.Context, stopProcess bool, format string, args ...interface{}) {
	From(ctx).F(stopProcess, format, args...)
}
