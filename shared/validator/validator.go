package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var alnumSpaceRegex = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)

// ValidationError carries one human readable message per invalid field.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Validator validates request payloads and translates failures to English.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New creates a Validator that reports fields by their JSON names.
func New() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")

	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, err
	}

	if err := validate.RegisterValidation("alnumspace", func(fl validator.FieldLevel) bool {
		return alnumSpaceRegex.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	if err := validate.RegisterTranslation(
		"alnumspace",
		translator,
		func(t ut.Translator) error {
			return t.Add("alnumspace", "{0} can only contain letters, numbers, and spaces", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T("alnumspace", fe.Field())
			return msg
		},
	); err != nil {
		return nil, err
	}

	return &Validator{validate: validate, translator: translator}, nil
}

// Struct validates s and returns a *ValidationError listing every failure.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Translate(v.translator))
	}

	return &ValidationError{Messages: messages}
}
