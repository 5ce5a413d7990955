// Package validators parses request bodies and queries and checks them with go-playground
// validator before handing typed requests to controllers through c.Locals.
package validators

import (
	"reflect"
	"strings"

	"lms/middleware"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	notBlankTag = "notblank"
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Report json names instead of Go field names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = Validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if str, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(str) != ""
		}
		return false
	})
	_ = Validate.RegisterTranslation(notBlankTag, Translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		})
}

// ValidateStruct returns a field -> message map, empty when s is valid.
func ValidateStruct(s interface{}) map[string]string {
	errs := map[string]string{}
	err := Validate.Struct(s)
	if err == nil {
		return errs
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["request"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		errs[field] = fe.Translate(Translator)
	}
	return errs
}

// Body parses the JSON (or form) body into a new T, validates it and stores *T under key.
func Body[T any](key string, checks ...func(*T, map[string]string)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(T)
		if err := c.BodyParser(req); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		return finish(c, key, req, checks)
	}
}

// Query is Body for query strings.
func Query[T any](key string, checks ...func(*T, map[string]string)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(T)
		if err := c.QueryParser(req); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}
		return finish(c, key, req, checks)
	}
}

func finish[T any](c *fiber.Ctx, key string, req *T, checks []func(*T, map[string]string)) error {
	errs := ValidateStruct(req)
	for _, check := range checks {
		check(req, errs)
	}
	if len(errs) > 0 {
		return middleware.ValidationErrorResponse(c, errs)
	}
	c.Locals(key, req)
	return c.Next()
}

// ParamID reads a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name+"!")
	}
	return uint(id), nil
}
