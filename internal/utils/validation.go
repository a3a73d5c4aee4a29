package utils

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
	"github.com/Kaplan-Paving/fleet-backend/internal/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names for validation errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Enum values contain spaces, so oneof cannot express them.
	mustRegister("priority", func(fl validator.FieldLevel) bool {
		return model.Priority(fl.Field().String()).Valid()
	})
	mustRegister("wopriority", func(fl validator.FieldLevel) bool {
		return model.Priority(fl.Field().String()).ValidForWorkOrder()
	})
	mustRegister("ticketstatus", func(fl validator.FieldLevel) bool {
		return model.TicketStatus(fl.Field().String()).Valid()
	})
	mustRegister("assetstatus", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == model.AssetActive || s == model.AssetOutForService
	})
	mustRegister("readingstatus", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case model.ReadingInUse, model.ReadingIdle, model.ReadingUnderMaintenance:
			return true
		}
		return false
	})
	mustRegister("role", func(fl validator.FieldLevel) bool {
		return model.ValidRole(fl.Field().String())
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// ValidateStruct validates s and returns an *apperror.AppError listing one
// message per failing field.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.NewValidation("validation failed", err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperror.NewValidation("validation failed", msgs...)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "priority":
		return fmt.Sprintf("%s must be one of [Normal High Critical]", field)
	case "wopriority":
		return fmt.Sprintf("%s must be one of [Critical High Normal Low]", field)
	case "ticketstatus":
		return fmt.Sprintf("%s is not a valid ticket status", field)
	case "assetstatus":
		return fmt.Sprintf("%s must be one of [Active, Out for Service]", field)
	case "readingstatus":
		return fmt.Sprintf("%s must be one of [In Use, Idle, Under Maintenance]", field)
	case "role":
		return fmt.Sprintf("%s must be one of [admin mechanic operator]", field)
	}
	return fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag())
}
