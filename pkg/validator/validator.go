package validator

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/medifast/claims-api/internal/model"
)

// RegisterCustom installs claim-domain validations on gin's binding
// engine. Request structs can then use `claimstatus` and `userrole`
// binding tags. Call once at startup.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("claimstatus", validClaimStatus); err != nil {
		return fmt.Errorf("failed to register claimstatus validation: %w", err)
	}
	if err := v.RegisterValidation("userrole", validRole); err != nil {
		return fmt.Errorf("failed to register userrole validation: %w", err)
	}
	return nil
}

func validClaimStatus(fl validator.FieldLevel) bool {
	return model.ClaimStatus(fl.Field().String()).Valid()
}

func validRole(fl validator.FieldLevel) bool {
	return model.Role(fl.Field().String()).Valid()
}
