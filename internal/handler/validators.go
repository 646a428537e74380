package handler

import (
	"learnhub/internal/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the forum binding tags to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("forum_reason", func(fl validator.FieldLevel) bool {
		return domain.IsValidReason(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("report_target", func(fl validator.FieldLevel) bool {
		return domain.IsValidTargetType(fl.Field().String())
	})
}
