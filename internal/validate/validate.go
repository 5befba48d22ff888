package validate

// This package adds struct and field validation as a thin wrapper around the go-playground/validator package.
//
// e.g. internal/invoker/policy.go
//   type Policy struct {
//       MaxRetries     int `yaml:"max_retries" validate:"gt=0"`
//       TimeoutSeconds int `yaml:"timeout_seconds" validate:"gt=0"`
//       ...
//   }
//
// It also registers the repo_id tag used for registry model identifiers.

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

// repoIDPattern matches "name" or "owner/name" as accepted by the registry.
var repoIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*(/[A-Za-z0-9][A-Za-z0-9._-]*)?$`)

//nolint:gochecknoglobals // Shared validator singleton.
var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

// get returns a process-wide singleton of the validator.
func get() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
		_ = validatorInst.RegisterValidation("repo_id", func(fl validator.FieldLevel) bool {
			return repoIDPattern.MatchString(fl.Field().String())
		})
	})
	return validatorInst
}

// Struct validates a struct using the shared validator instance.
func Struct(v any) error {
	return get().Struct(v)
}

// Var validates a single variable against the provided tag constraints.
func Var(field any, tag string) error {
	return get().Var(field, tag)
}
