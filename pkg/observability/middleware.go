// Copyright 2025 Kadir Pekel
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

package observability

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTPMiddleware wraps each request in a server span and records its
// latency. Either tracer or metrics may be nil.
func HTTPMiddleware(tracer trace.Tracer, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := startRequestSpan(r, tracer)
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r.WithContext(ctx))

			// chi fills the pattern in while routing, so read it afterwards.
			route := routePattern(r)
			endRequestSpan(span, r.Method, route, rec)
			metrics.RecordHTTPRequest(ctx, r.Method, route, rec.code(), time.Since(start))
		})
	}
}

func startRequestSpan(r *http.Request, tracer trace.Tracer) (context.Context, trace.Span) {
	if tracer == nil {
		return r.Context(), nil
	}
	return tracer.Start(r.Context(), SpanHTTPRequest,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String(AttrHTTPMethod, r.Method)),
	)
}

func endRequestSpan(span trace.Span, method, route string, rec *statusRecorder) {
	if span == nil {
		return
	}
	defer span.End()

	status := rec.code()
	span.SetName(method + " " + route)
	span.SetAttributes(
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatusCode, status),
		attribute.Int64(AttrHTTPResponseSize, rec.size),
	)
	if status >= http.StatusInternalServerError {
		msg := fmt.Sprintf("HTTP %d", status)
		span.SetStatus(codes.Error, msg)
		span.SetAttributes(attribute.String(AttrErrorType, msg))
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}

// statusRecorder remembers the first status written and counts body bytes.
// A zero status means the handler never wrote one, which net/http treats
// as 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int64
}

func (w *statusRecorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

// Hijack hands the connection to the websocket upgrader.
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
