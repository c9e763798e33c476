// Copyright 2026 Blink Labs Software
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

package ledger

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// EngineOptionFunc is a type that represents functions that modify the Engine config
type EngineOptionFunc func(*Engine)

// WithHooks specifies the before/after transfer hooks. If none are provided,
// every transfer is accepted
func WithHooks(hooks Hooks) EngineOptionFunc {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithReceivers specifies the directory used to look up a recipient's
// receiver capability. If none is provided, every recipient accepts
func WithReceivers(receivers ReceiverDirectory) EngineOptionFunc {
	return func(e *Engine) {
		e.receivers = receivers
	}
}

// WithEventEmitter specifies where transfer and approval events are sent.
// Events are discarded by default
func WithEventEmitter(emitter EventEmitter) EngineOptionFunc {
	return func(e *Engine) {
		e.emitter = emitter
	}
}

// WithLogger specifies the logger to use. If none is provided, slog.Default() is used
func WithLogger(logger *slog.Logger) EngineOptionFunc {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracerProvider specifies the OpenTelemetry tracer provider used for
// operation spans. The global provider is used by default
func WithTracerProvider(tp trace.TracerProvider) EngineOptionFunc {
	return func(e *Engine) {
		e.tracerProvider = tp
	}
}
