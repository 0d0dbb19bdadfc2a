// Package validation configures the validator shared by gin binding and the
// service layer, and converts its failures into apperr validation errors.
package validation

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/security"
)

const (
	strongPasswordTag  = "strongpassword"
	strongPasswordText = security.PasswordRequirements

	requiredTag  = "required"
	requiredText = "{0} is required"
)

var (
	setupOnce  sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

// Engine returns gin's binding validator with the portal's tags registered.
func Engine() *validator.Validate {
	setupOnce.Do(setup)
	return validate
}

func setup() {
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		engine = validator.New()
		engine.SetTagName("binding")
	}

	locale := en.New()
	translator, _ = ut.New(locale, locale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(engine, translator)

	// Use JSON tag names for errors instead of Go struct names.
	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = engine.RegisterValidation(strongPasswordTag, func(fl validator.FieldLevel) bool {
		return security.IsStrongPassword(fl.Field().String())
	})
	registerTranslation(engine, strongPasswordTag, strongPasswordText, false)
	registerTranslation(engine, requiredTag, requiredText, true)

	validate = engine
}

func registerTranslation(engine *validator.Validate, tag, text string, override bool) {
	_ = engine.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates v against its binding tags.
func Struct(v any) error {
	if err := Engine().Struct(v); err != nil {
		return FromError(err)
	}
	return nil
}

// FromError converts binding and validator failures into a validation error
// with per-field messages. Other errors pass through unchanged.
func FromError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		Engine()
		fields := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Translate(translator)
		}
		if fe := verrs[0]; fe.Tag() == strongPasswordTag {
			return apperr.WeakPassword(security.PasswordRequirements).WithDetails(map[string]any{"fields": fields})
		}
		return apperr.Validation("invalid request").WithDetails(map[string]any{"fields": fields}).Wrap(err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return apperr.Validation("malformed JSON body").Wrap(err)
	case errors.As(err, &typeErr):
		return apperr.Validation("invalid value for " + typeErr.Field).Wrap(err)
	}
	return err
}

// BindError is FromError for request decoding: anything that is not already
// an apperr becomes a validation error.
func BindError(err error) error {
	err = FromError(err)
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, io.EOF) {
		return apperr.Validation("request body is required").Wrap(err)
	}
	return apperr.Validation("invalid request body").Wrap(err)
}
