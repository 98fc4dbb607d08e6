package validate

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// ProgramLevel is the log level the whole program logs at.
//
// Validating a loglevel field sets it as a side effect.
var ProgramLevel = new(slog.LevelVar)

func isLogLevel(fl validator.FieldLevel) bool {
	level := []byte(fl.Field().String())
	err := ProgramLevel.UnmarshalText(level)
	if err != nil {
		return false
	}
	return true
}
