package errors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Trace identifies one CLI command or one gateway request. The request id
// is shared by everything the command or request triggers; Operation names
// the helper currently running (a command name or a dapp_* method).
type Trace struct {
	RequestID string
	Operation string
	Start     time.Time
}

type traceKey struct{}

// WithTrace returns ctx carrying a trace.
//
// A trace already on ctx keeps its request id and start time; a non-empty
// operation replaces its operation. Without an existing trace an empty
// requestID gets a fresh uuid and Start is now.
//
// Parameters:
//   - ctx: The parent context
//   - requestID: The caller's request id, or "" to keep or generate one
//   - operation: The operation name, or "" to keep the current one
//
// Returns:
//   - context.Context: The derived context
func WithTrace(ctx context.Context, requestID, operation string) context.Context {
	t, ok := TraceFromContext(ctx)
	if !ok {
		t = Trace{Start: time.Now()}
	}
	if requestID != "" {
		t.RequestID = requestID
	}
	if t.RequestID == "" {
		t.RequestID = GenerateRequestID()
	}
	if operation != "" {
		t.Operation = operation
	}
	return context.WithValue(ctx, traceKey{}, t)
}

// TraceFromContext 取出 ctx 上的 Trace
func TraceFromContext(ctx context.Context) (Trace, bool) {
	if ctx == nil {
		return Trace{}, false
	}
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}

// GetRequestID 从context获取请求ID
func GetRequestID(ctx context.Context) string {
	t, _ := TraceFromContext(ctx)
	return t.RequestID
}

// Elapsed 自 Start 起经过的时间
func (t Trace) Elapsed() time.Duration {
	if t.Start.IsZero() {
		return 0
	}
	return time.Since(t.Start)
}

// Fields 返回非空的 request_id / operation 日志字段
func (t Trace) Fields() logrus.Fields {
	fields := logrus.Fields{}
	if t.RequestID != "" {
		fields["request_id"] = t.RequestID
	}
	if t.Operation != "" {
		fields["operation"] = t.Operation
	}
	return fields
}

// GenerateRequestID 生成新的请求ID
func GenerateRequestID() string {
	return uuid.New().String()
}
