package api

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// DateLayout is the only date format the API accepts and returns.
const DateLayout = "2006-01-02"

var (
	phonePattern = regexp.MustCompile(`^[\d\s()+-]{7,}$`)
	validate     = newValidator()
	now          = time.Now
)

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// gt/gte/lte on decimals compare their float value
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			val, _ := d.Float64()
			return val
		}
		return nil
	}, decimal.Decimal{})

	// decimals=N: no más cifras decimales que las que guarda la columna
	mustRegister(v, "decimals", func(fl validator.FieldLevel) bool {
		places, err := strconv.Atoi(fl.Param())
		if err != nil || fl.Field().Kind() != reflect.Float64 {
			return false
		}
		d := decimal.NewFromFloat(fl.Field().Float())
		return d.Equal(d.Round(int32(places)))
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "contact", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		if phonePattern.MatchString(s) {
			return true
		}
		return v.Var(s, "email") == nil
	})
	mustRegister(v, "date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	mustRegister(v, "notfuture", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(DateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		return !d.After(today())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func today() time.Time {
	y, m, d := now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate checks the struct tags of a request DTO.
func Validate(obj interface{}) error {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return &ValidationError{Message: "Datos inválidos", Fields: fields}
}

// ParseBody decodes the JSON body into obj and validates it.
func ParseBody(c *fiber.Ctx, obj interface{}) error {
	if err := c.BodyParser(obj); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	return Validate(obj)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("debe tener al menos %s caracteres", fe.Param())
		}
		return fmt.Sprintf("debe ser al menos %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("debe tener como máximo %s caracteres", fe.Param())
		}
		return fmt.Sprintf("debe ser como máximo %s", fe.Param())
	case "gt":
		return fmt.Sprintf("debe ser mayor que %s", fe.Param())
	case "gte":
		return fmt.Sprintf("debe ser mayor o igual que %s", fe.Param())
	case "lte":
		return fmt.Sprintf("debe ser menor o igual que %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("debe ser uno de: %s", fe.Param())
	case "decimals":
		return fmt.Sprintf("admite como máximo %s decimales", fe.Param())
	case "email":
		return "debe ser un email válido"
	case "phone":
		return "debe ser un teléfono válido"
	case "contact":
		return "debe ser un teléfono o email válido"
	case "date":
		return "debe tener el formato YYYY-MM-DD"
	case "notfuture":
		return "no puede ser una fecha futura"
	case "eqfield":
		return fmt.Sprintf("debe coincidir con %s", fe.Param())
	case "nefield":
		return fmt.Sprintf("debe ser distinto de %s", fe.Param())
	case "ltefield":
		return fmt.Sprintf("no puede superar %s", fe.Param())
	default:
		return "no es válido"
	}
}
