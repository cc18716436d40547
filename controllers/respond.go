package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/Arman3747/BloodConnect-Server/apperr"
	"github.com/Arman3747/BloodConnect-Server/identity"
	"github.com/Arman3747/BloodConnect-Server/store"
)

// respondError writes err as {"error", "code"}. The cause stays in
// c.Errors for the request log and never reaches the client.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	code := apperr.CodeOf(err)
	c.AbortWithStatusJSON(code.HTTPStatus(), gin.H{
		"error": apperr.Public(err),
		"code":  code,
	})
}

func badBody(c *gin.Context, err error) {
	respondError(c, apperr.Wrap(apperr.CodeValidation, "invalid request body", err))
}

const maxFormMemory = 32 << 20

// decode fills obj from a JSON or form body without applying its binding
// rules. The services validate after the access check, and updates send
// any subset of the fields.
func decode(c *gin.Context, obj any) error {
	switch c.ContentType() {
	case binding.MIMEMultipartPOSTForm, binding.MIMEPOSTForm:
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return err
		}
		return binding.MapFormWithTag(obj, c.Request.PostForm, "form")
	default:
		return json.NewDecoder(c.Request.Body).Decode(obj)
	}
}

// caller is the verified identity, nil on public routes.
func caller(c *gin.Context) *identity.Identity {
	return identity.FromContext(c.Request.Context())
}

func updateJSON(res store.UpdateResult) gin.H {
	return gin.H{
		"acknowledged":  true,
		"matchedCount":  res.Matched,
		"modifiedCount": res.Modified,
	}
}

func queryInt(c *gin.Context, key string, def int64) (int64, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, apperr.Validation(key + " must be an integer")
	}
	return n, nil
}

// ---------------- HEALTH ----------------
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "BloodConnect is running !")
	}
}
