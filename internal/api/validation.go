package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"rental-service/internal/apperr"
	"rental-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validatorsOnce sync.Once
	validatorsErr  error
)

// registerValidators teaches gin's validator the domain enums and makes
// errors report json field names.
func registerValidators() error {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			validatorsErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		validatorsErr = registerEnumValidators(v)
	})
	return validatorsErr
}

func registerEnumValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("mediatype", func(fl validator.FieldLevel) bool {
		return models.MediaType(fl.Field().String()).Valid()
	}); err != nil {
		return fmt.Errorf("failed to register mediatype validator: %w", err)
	}
	if err := v.RegisterValidation("negotiationtype", func(fl validator.FieldLevel) bool {
		return models.NegotiationType(fl.Field().String()).Valid()
	}); err != nil {
		return fmt.Errorf("failed to register negotiationtype validator: %w", err)
	}
	return nil
}

// bindJSON decodes the body into out. Decoding and validation failures are ValidationErrors.
func bindJSON(c *gin.Context, out interface{}) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return apperr.WrapValidation(err, describeBindError(err))
	}
	return nil
}

func describeBindError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid request body: " + err.Error()
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "mediatype":
			msgs = append(msgs, fmt.Sprintf("%s must be one of MOVIE, SERIE, BOOK", fe.Field()))
		case "negotiationtype":
			msgs = append(msgs, fmt.Sprintf("%s must be one of RENT, SALE", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed the %s rule", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
