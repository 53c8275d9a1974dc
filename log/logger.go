// Copyright 2022-2026 The shadowtrace Authors
// This file is part of the shadowtrace library.
//
// The shadowtrace library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The shadowtrace library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the shadowtrace library. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// logger forwards key/value context to the shared logrus terminal.
type logger struct {
	ctx []interface{}
}

func (l *logger) New(ctx ...interface{}) Logger {
	child := &logger{ctx: make([]interface{}, 0, len(l.ctx)+len(ctx))}
	child.ctx = append(child.ctx, l.ctx...)
	child.ctx = append(child.ctx, ctx...)
	return child
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(msg, LvlTrace, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(msg, LvlDebug, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(msg, LvlInfo, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(msg, LvlWarn, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(msg, LvlError, ctx) }

func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.write(msg, LvlCrit, ctx)
	os.Exit(1)
}

func (l *logger) write(msg string, lvl Lvl, ctx []interface{}) {
	entry := terminal.WithFields(fieldsOf(append(append([]interface{}{}, l.ctx...), ctx...)))
	switch lvl {
	case LvlTrace:
		entry.Trace(msg)
	case LvlDebug:
		entry.Debug(msg)
	case LvlInfo:
		entry.Info(msg)
	case LvlWarn:
		entry.Warn(msg)
	case LvlError:
		entry.Error(msg)
	case LvlCrit, LvlFatal:
		entry.Error(msg)
	}
}

// fieldsOf converts alternating key/value context into logrus fields. A
// trailing key without value is kept with a nil value.
func fieldsOf(ctx []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(ctx)/2)
	for i := 0; i < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			key = fmt.Sprint(ctx[i])
		}
		if i+1 < len(ctx) {
			fields[key] = ctx[i+1]
		} else {
			fields[key] = nil
		}
	}
	return fields
}
