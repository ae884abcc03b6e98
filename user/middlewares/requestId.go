package middlewares

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mflix-org/marquee/token"
)

type reqIdKeyType int

const reqIdKey reqIdKeyType = iota

func GetRequestIdCtx(ctx context.Context) (string, bool) {
	reqId, ok := ctx.Value(reqIdKey).(string)
	return reqId, ok
}

// RequestIdMiddleware reuses the id a proxy already gave the request when it
// is a uuid, and answers with the id so callers can quote it.
func RequestIdMiddleware(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		reqId := r.Header.Get(token.MARQUEE_REQUEST_ID)
		if _, err := uuid.Parse(reqId); err != nil {
			reqId = uuid.New().String()
		}

		w.Header().Set(token.MARQUEE_REQUEST_ID, reqId)
		ctx := context.WithValue(r.Context(), reqIdKey, reqId)

		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}
