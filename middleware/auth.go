package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Arman3747/BloodConnect-Server/apperr"
	"github.com/Arman3747/BloodConnect-Server/identity"
)

// Authenticate requires a valid bearer token. The verified identity is put
// on the request context; every failure is answered with 401.
func Authenticate(v identity.Verifier, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			abort(c, apperr.New(apperr.CodeUnauthenticated, "unauthorized access"))
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		id, err := v.Verify(ctx, token)
		cancel()
		if err != nil {
			abort(c, apperr.Wrap(apperr.CodeUnauthenticated, "unauthorized access", err))
			return
		}

		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
		c.Set("email", id.Email)
		c.Next()
	}
}

func abort(c *gin.Context, err *apperr.Error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(err.Code.HTTPStatus(), gin.H{"error": err.Message, "code": err.Code})
}
