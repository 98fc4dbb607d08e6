package validate

import (
	"github.com/go-playground/validator/v10"

	"github.com/modprep/modprep/pkg/kernelrelease"
)

func isKernelRelease(fl validator.FieldLevel) bool {
	kr := kernelrelease.FromString(fl.Field().String())
	return kr.Fullversion != ""
}
