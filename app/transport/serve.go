package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReplyFunc produces the reply for one provider method.
type ReplyFunc func(ctx context.Context) (any, error)

// Serve adapts a ReplyFunc to a gin handler speaking the provider protocol.
func Serve(method string, fn ReplyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		reply, err := fn(c.Request.Context())
		if err != nil {
			slog.Error("Provider method failed", "method", method, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, reply)
	}
}

// Register mounts each method at POST /<method>.
func Register(r gin.IRoutes, methods map[string]ReplyFunc) {
	for method, fn := range methods {
		r.POST("/"+method, Serve(method, fn))
	}
}
