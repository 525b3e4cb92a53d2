package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidateConfig performs validation on the GlobalConfig structure.
func ValidateConfig(cfg *GlobalConfig) error {
	validate := newValidator()

	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if len(enabledViewports(cfg.CaptureConfig.Viewports)) == 0 {
		return errors.New("configuration validation failed:\n  at least one viewport must be enabled")
	}
	return nil
}

// ValidateInputs checks that a capture run has something to capture.
func ValidateInputs(cfg *GlobalConfig) error {
	if !cfg.InputConfig.HasInputs() {
		return errors.New("no input provided: set at least one of url_file, burp_file, subdomain_file, nmap_file")
	}
	return nil
}

func newValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("fileexists", func(fl validator.FieldLevel) bool {
		filePath := fl.Field().String()
		if filePath == "" {
			return true
		}
		info, err := os.Stat(filePath)
		return err == nil && !info.IsDir()
	})

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "debug", "info", "warn", "error", "fatal", "panic":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "text", "json":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("protocol", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "http", "https":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("regexlist", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.Slice {
			return false
		}
		patterns, ok := fl.Field().Interface().([]string)
		if !ok {
			return false
		}
		for _, p := range patterns {
			if _, err := regexp.Compile("(?i)" + p); err != nil {
				return false
			}
		}
		return true
	})

	return validate
}

func formatValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("configuration validation error: %w", err)
	}

	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		fieldName := strings.TrimPrefix(e.StructNamespace(), "GlobalConfig.")
		msg := fmt.Sprintf("Validation failed for '%s': rule '%s'", fieldName, e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		if e.Value() != nil && e.Value() != "" {
			msg += fmt.Sprintf(", actual: '%v'", e.Value())
		}
		messages = append(messages, msg)
	}
	return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(messages, "\n  "))
}
