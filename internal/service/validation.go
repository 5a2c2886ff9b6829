package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate

	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,32}$`)
)

// Validator returns the shared struct validator. Besides the built-in tags
// it understands username and symbol, and reports fields by their json name.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRegex.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
			return domain.ValidSymbol(domain.NormalizeSymbol(fl.Field().String()))
		})
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		validate = v
	})
	return validate
}

// ValidateStruct runs the shared validator on v and converts the first
// failure into a *domain.ValidationError.
func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ValidationError{Message: err.Error()}
	}
	return &domain.ValidationError{Message: describe(verrs[0])}
}

// parseCents converts the dollar field to cents. Bad precision or an amount
// beyond the int64 cents range is reported as a *domain.ValidationError.
func parseCents(field string, f float64) (int64, error) {
	cents, err := domain.DollarsToCents(f)
	if errors.Is(err, domain.ErrAmountOutOfRange) {
		return 0, &domain.ValidationError{Message: field + " is out of range"}
	}
	if err != nil {
		return 0, &domain.ValidationError{Message: field + " must have at most 2 decimal places"}
	}
	return cents, nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "username":
		return field + " must match ^[a-zA-Z0-9_-]{3,32}$"
	case "symbol":
		return field + " must match ^[A-Z]{1,10}$"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}
