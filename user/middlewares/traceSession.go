package middlewares

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mflix-org/marquee/token"
)

type traceSessionIdKeyType int

const traceSessionIdKey traceSessionIdKeyType = 1

func GetTraceSessionIdCtx(ctx context.Context) (string, bool) {
	traceSessionId, ok := ctx.Value(traceSessionIdKey).(string)
	return traceSessionId, ok
}

// TraceSessionIdMiddleware keeps the caller's trace session id, or starts a
// new one.
func TraceSessionIdMiddleware(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		traceSessionId := r.Header.Get(token.MARQUEE_TRACE_SESSION)
		if _, err := uuid.Parse(traceSessionId); err != nil {
			traceSessionId = uuid.New().String()
		}

		ctx = context.WithValue(ctx, traceSessionIdKey, traceSessionId)
		w.Header().Set(token.MARQUEE_TRACE_SESSION, traceSessionId)

		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}
