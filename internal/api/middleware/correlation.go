package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderCorrelationID threads one logical operation through producer,
// API, and push logs. Callers that set it get their value echoed back;
// callers that don't get a generated one.
const HeaderCorrelationID = "X-Correlation-ID"

type ctxKey int

const correlationKey ctxKey = iota

// CorrelationID tags every request with a correlation identifier, taken
// from the request header when present and freshly generated otherwise.
// The identifier rides the request context and the response header so
// both sides of the call log the same value.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderCorrelationID)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(HeaderCorrelationID, id)
		ctx := context.WithValue(r.Context(), correlationKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CorrelationIDFrom returns the identifier stored by CorrelationID, or
// an empty string when the middleware did not run.
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}
