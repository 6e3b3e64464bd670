package controller

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	e "github.com/gartstein/toolspend/internal/spend/errors"
	"github.com/gartstein/toolspend/internal/spend/models"
	"github.com/go-playground/validator/v10"
)

const (
	msgNameUnique      = "Name must be unique"
	msgCategoryMissing = "Category does not exist"
)

// fieldMessages maps a JSON field and the failing validation tag to the
// message returned to the client.
var fieldMessages = map[string]map[string]string{
	"name": {
		"required": "Name is required",
		"min":      "Name must be at least 2 characters",
		"max":      "Name must be at most 100 characters",
	},
	"vendor": {
		"required": "Vendor is required",
		"min":      "Vendor is required",
		"max":      "Vendor must be at most 100 characters",
	},
	"description": {
		"max": "Description must be at most 255 characters",
	},
	"website_url": {
		"url": "Website URL must be a valid URL",
		"max": "Website URL must be at most 255 characters",
	},
	"monthly_cost": {
		"required": "Monthly cost is required",
		"nonneg":   "Monthly cost must be >= 0",
		"money":    "Monthly cost must have max 2 decimals",
		"maxcost":  "Monthly cost must be at most " + models.MaxMoney.String(),
	},
	"owner_department": {
		"required":   "Owner department is required",
		"department": "Owner department must be one of: " + joinValues(models.Departments),
	},
	"category_id": {
		"required": "Category ID is required",
	},
	"status": {
		"status": "Status must be one of: " + joinValues(models.Statuses),
	},
	"active_users_count": {
		"gte": "Active users count must be >= 0",
	},
}

type inputValidator struct {
	validate *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "nonneg", func(fl validator.FieldLevel) bool {
		f, err := strconv.ParseFloat(strings.TrimSpace(fl.Field().String()), 64)
		if err != nil {
			// Not a number at all; "money" reports it.
			return true
		}
		return f >= 0
	})
	mustRegister(v, "money", func(fl validator.FieldLevel) bool {
		return models.ValidAmount(fl.Field().String())
	})
	mustRegister(v, "maxcost", func(fl validator.FieldLevel) bool {
		_, err := models.ParseMoney(fl.Field().String())
		return !errors.Is(err, models.ErrAmountTooLarge)
	})
	mustRegister(v, "department", func(fl validator.FieldLevel) bool {
		return models.Department(fl.Field().String()).Valid()
	})
	mustRegister(v, "status", func(fl validator.FieldLevel) bool {
		return models.Status(fl.Field().String()).Valid()
	})

	return &inputValidator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// check validates input's struct tags and collects one message per field.
func (iv *inputValidator) check(input interface{}) *e.ValidationError {
	verr := e.NewValidationError()

	err := iv.validate.Struct(input)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("body", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		if verr.Has(fe.Field()) {
			continue
		}
		verr.Add(fe.Field(), messageFor(fe.Field(), fe.Tag()))
	}
	return verr
}

func messageFor(field, tag string) string {
	if msg, ok := fieldMessages[field][tag]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid", field)
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
