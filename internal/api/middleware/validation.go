package middleware

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"video-conversion/internal/api/errors"
)

// Validator is implemented by request bodies with rules struct tags cannot express.
type Validator interface {
	Validate() error
}

var tagMessages = map[string]string{
	"required":    "is required",
	"hexadecimal": "must be hexadecimal",
	"min":         "is too short",
	"max":         "is too long",
}

// ValidateRequest binds the JSON body, checks struct tags and then the body's own rules.
// A body that is not JSON at all is a bad request; a JSON body with bad fields is a
// validation error listing each field.
func ValidateRequest(c *gin.Context, req interface{}) error {
	err := c.ShouldBindJSON(req)
	if err == nil {
		if v, ok := req.(Validator); ok {
			return v.Validate()
		}
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.New(errors.KindBadRequest, "Malformed JSON body")
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		details[toSnake(fe.Field())] = msg
	}
	return errors.NewValidationError("Validation failed", details)
}

// toSnake turns a Go field name such as ContentHash into content_hash.
func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
