package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/precast_backend/utils"
)

const (
	HeaderUserId        = "X-User-Id"
	HeaderUserName      = "X-User-Name"
	HeaderCorrelationId = "X-Correlation-Id"
)

// RequestContext copies the caller identity and correlation id into the request context.
// A correlation id is generated when the caller sends none and echoed back on the response.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if userId := strings.TrimSpace(c.GetHeader(HeaderUserId)); userId != "" {
			ctx = utils.SetUserIdInContext(ctx, userId)
		}
		if userName := strings.TrimSpace(c.GetHeader(HeaderUserName)); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}
		correlationId := strings.TrimSpace(c.GetHeader(HeaderCorrelationId))
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header(HeaderCorrelationId, correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
