package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Checkpoint container formats
const (
	FormatMP4 = "mp4"
	FormatWAV = "wav"
)

// SupportedAudioFormats lists the container formats a checkpoint can be written in
var SupportedAudioFormats = []string{FormatMP4, FormatWAV}

// CustomValidator implements echo.Validator using go-playground/validator
type CustomValidator struct {
	v *validator.Validate
}

// New creates a new CustomValidator instance
func New() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("audioformat", validateAudioFormat)
	return &CustomValidator{v: v}
}

// Validate performs struct validation
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// Var validates a single value against a tag
func (cv *CustomValidator) Var(field interface{}, tag string) error {
	return cv.v.Var(field, tag)
}

// IsSupportedAudioFormat checks a file format name, case-insensitively
func IsSupportedAudioFormat(format string) bool {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	for _, f := range SupportedAudioFormats {
		if f == format {
			return true
		}
	}
	return false
}

func validateAudioFormat(fl validator.FieldLevel) bool {
	return IsSupportedAudioFormat(fl.Field().String())
}
