package dto

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	requiredText = "this field is required"
	mismatchText = "Passwords do not match"
)

// Validator checks forms and renders field errors in English.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a Validator that reports fields by their form name.
func NewValidator() *Validator {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	registerTranslation(validate, translator, "required", requiredText)
	registerTranslation(validate, translator, "eqfield", mismatchText)

	return &Validator{validate: validate, translator: translator}
}

// Struct validates form and returns FieldErrors on failure.
func (v *Validator) Struct(form interface{}) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(v.translator)
	}
	return fields
}

// FieldErrors maps form field names to messages.
type FieldErrors map[string]string

// Error implements error. A password mismatch wins since it is the only
// cross-field rule; otherwise the message names the empty fields.
func (f FieldErrors) Error() string {
	names := make([]string, 0, len(f))
	for name, message := range f {
		if message == mismatchText {
			return mismatchText
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return "Please fill in all required fields: " + strings.Join(names, ", ")
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}
