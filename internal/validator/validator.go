// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"cargotrack/internal/models"
)

// Warehouse codes are short upper-case identifiers like "ALM" or "ALMATY".
var warehouseCodeRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{1,31}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("user_role", validateUserRole)
		_ = v.RegisterValidation("track_status", validateTrackStatus)
		_ = v.RegisterValidation("warehouse_code", validateWarehouseCode)
	}
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.ValidRole(fl.Field().String())
}

func validateTrackStatus(fl validator.FieldLevel) bool {
	return models.ValidTrackStatus(fl.Field().String())
}

func validateWarehouseCode(fl validator.FieldLevel) bool {
	return warehouseCodeRegex.MatchString(fl.Field().String())
}
