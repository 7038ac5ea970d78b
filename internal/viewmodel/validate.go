package viewmodel

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Messages maps "field.tag" (or just "field") to the message shown when
// that field fails that tag.
type Messages map[string]string

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
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
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validate = v
	})
	return validate
}

// Check validates the struct tags of v and returns failures keyed by the
// json name of each top-level field. Only the first failing tag of a field
// is reported.
func Check(v any, messages Messages) FieldErrors {
	return CheckPrefixed(v, "", messages)
}

// CheckPrefixed is Check with every key prefixed, used for items of a
// collection ("lineItem_0_").
func CheckPrefixed(v any, prefix string, messages Messages) FieldErrors {
	out := FieldErrors{}
	err := validatorInstance().Struct(v)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out[prefix+"_"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		key := prefix + fe.Field()
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = messageFor(fe, messages)
	}
	return out
}

func messageFor(fe validator.FieldError, messages Messages) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Field()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	case "datetime":
		return fe.Field() + " must be a date (YYYY-MM-DD)"
	default:
		return fe.Field() + " is invalid"
	}
}
