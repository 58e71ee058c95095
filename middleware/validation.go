package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ValidatedPayloadKey holds the bound and validated request body in the
// gin context.
const ValidatedPayloadKey = "validatedPayload"

var validate *validator.Validate
var once sync.Once

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct binds the JSON body into a fresh copy of the given
// prototype and validates it before the handler runs.
func ValidateStruct(newObj func() interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		obj := newObj()
		if err := c.ShouldBindJSON(obj); err != nil {
			c.String(http.StatusBadRequest, "malformed request body")
			c.Abort()
			return
		}

		if err := getValidator().Struct(obj); err != nil {
			c.String(http.StatusBadRequest, "invalid request: %v", err)
			c.Abort()
			return
		}

		c.Set(ValidatedPayloadKey, obj)
		c.Next()
	}
}
