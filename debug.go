// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Edited by in 2025 olandr.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logMu sync.RWMutex
	log   = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	l.Level = logrus.InfoLevel
	if os.Getenv("NOTIFY_DEBUG") != "" {
		l.Level = logrus.DebugLevel
	}
	return l
}

// SetLogger replaces the logger used by the package. Passing nil restores
// the default stderr logger.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = newLogger()
	}
	logMu.Lock()
	log = l
	logMu.Unlock()
}

// Logger returns the logger used by the package.
func Logger() *logrus.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return log
}

func dbgprintf(format string, v ...interface{}) {
	Logger().Debugf(format, v...)
}

func dbgprint(v ...interface{}) {
	Logger().Debug(fmt.Sprint(v...))
}
