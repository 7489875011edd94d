package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"

	"github.com/go-playground/validator/v10"
)

var (
	panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	cinPattern = regexp.MustCompile(`^[LU][0-9]{5}[A-Z]{2}[0-9]{4}[A-Z]{3}[0-9]{6}$`)
)

// newValidator builds the request validator with the KYC rules:
// pan (ABCDE1234F), cin (21-char corporate id) and isodate.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("pan", func(fl validator.FieldLevel) bool {
		return panPattern.MatchString(strings.ToUpper(fl.Field().String()))
	})
	_ = v.RegisterValidation("cin", func(fl validator.FieldLevel) bool {
		return cinPattern.MatchString(strings.ToUpper(fl.Field().String()))
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if _, err := time.Parse(time.DateOnly, s); err == nil {
			return true
		}
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	})
	return v
}

var validate = newValidator()

// decodeJSON reads the request body into dst and validates its tags.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &domain.ErrValidation{Message: "invalid request body"}
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ErrValidation{Message: err.Error()}
	}
	fe := fieldErrs[0]
	return &domain.ErrValidation{Field: fe.Field(), Message: ruleMessage(fe)}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "pan":
		return "must be a valid PAN number"
	case "cin":
		return "must be a valid CIN"
	case "isodate":
		return "must be an ISO-8601 date"
	case "min", "len", "max":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}
