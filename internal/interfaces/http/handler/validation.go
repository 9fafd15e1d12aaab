package handler

import (
	"github.com/erp/backoffice/internal/domain/document"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Custom binding validations for workflow enums. Registered once against
// gin's shared validator engine so request DTOs can tag enum fields
// instead of checking them by hand in every handler.
func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("documenttype", func(fl validator.FieldLevel) bool {
		return document.Type(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("documentaction", func(fl validator.FieldLevel) bool {
		return document.Action(fl.Field().String()).IsValid()
	})
}
