// Copyright 2025 Veritrust Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"fmt"
	"log/slog"
	"strings"
)

// badgerLogger adapts slog to the badger.Logger interface
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{
		logger: logger.With("component", "blobstore"),
	}
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.logger.Error(strings.TrimSuffix(fmt.Sprintf(format, args...), "\n"))
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.logger.Warn(strings.TrimSuffix(fmt.Sprintf(format, args...), "\n"))
}

func (b *badgerLogger) Infof(format string, args ...any) {
	// badger is chatty at info level, keep it at debug
	b.logger.Debug(strings.TrimSuffix(fmt.Sprintf(format, args...), "\n"))
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.logger.Debug(strings.TrimSuffix(fmt.Sprintf(format, args...), "\n"))
}
