package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain"
)

var validate = validator.New()

func init() {
	// decimal.Decimal como numérico para que funcionen tags como gte=0.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// Reportar el nombre json del campo, no el de Go.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate aplica los tags validate del DTO. Devuelve *domain.ValidationError con el primer campo inválido.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		return domain.NewValidationError(field, describe(fe))
	}
	return domain.NewValidationError("", err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "min", "gte":
		return fmt.Sprintf("debe ser >= %s", fe.Param())
	case "gt":
		return fmt.Sprintf("debe ser > %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("debe ser <= %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("debe ser uno de: %s", fe.Param())
	case "nefield":
		return fmt.Sprintf("debe ser distinto de %s", fe.Param())
	case "unique":
		return "contiene valores repetidos"
	}
	return fmt.Sprintf("no cumple %s", fe.Tag())
}
