package middleware

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var skuRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{2,49}$`)

// InitValidator registers custom validators on Gin's binding engine
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		tagName := func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			return name
		}

		validate = validator.New()
		_ = validate.RegisterValidation("sku", validateSKU)
		validate.RegisterTagNameFunc(tagName)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("sku", validateSKU)
			v.RegisterTagNameFunc(tagName)
		}
	})

	return validate
}

func validateSKU(fl validator.FieldLevel) bool {
	return skuRegex.MatchString(fl.Field().String())
}

// ValidationDetails converts validator errors into a field -> message map
// suitable for an AppError's details
func ValidationDetails(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = "failed validation: " + fe.Tag()
	}
	return details
}
