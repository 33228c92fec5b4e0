package ctxmanage

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIdKey is the gin context key under which the logger middleware
// stores the request's trace id.
const TraceIdKey = "trace_id"

// GetTraceIdOfRequest returns the trace id assigned to the request by the
// logger middleware. If the middleware did not run, a fresh id is generated
// so log lines are still correlatable.
func GetTraceIdOfRequest(c *gin.Context) string {
	if v, ok := c.Get(TraceIdKey); ok {
		if traceId, ok := v.(string); ok && traceId != "" {
			return traceId
		}
	}
	return uuid.NewString()
}
