package middlewares

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/mflix-org/marquee/common/logging"
)

type handler struct{ Log *log.Entry }

func New(mainLog *log.Entry) (h handler) {
	return handler{
		Log: mainLog,
	}
}

func GetLogReq(r *http.Request) *log.Entry {
	return logging.FromContext(r.Context())
}

func (h handler) LoggingMiddleware(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqLog := h.Log

		if traceSessionId, ok := GetTraceSessionIdCtx(ctx); ok {
			reqLog = reqLog.WithFields(log.Fields{"trace-session": traceSessionId})
		}
		if requestId, ok := GetRequestIdCtx(ctx); ok {
			reqLog = reqLog.WithFields(log.Fields{"request-id": requestId})
		}

		ctx = logging.WithLogger(ctx, reqLog)

		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}
