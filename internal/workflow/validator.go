package workflow

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	macrowerrors "github.com/alexisbeaulieu97/macrow/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	keySymbolPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("key_symbol", func(fl validator.FieldLevel) bool {
			return keySymbolPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// Validate performs schema validation on the whole step tree, nested bodies
// included.
func Validate(w *Workflow) error {
	if w == nil {
		return macrowerrors.NewValidationError("workflow", "workflow is nil", nil)
	}
	return validateSteps(w.Steps, "steps")
}

func validateSteps(steps []Step, prefix string) error {
	for i := range steps {
		if err := ValidateStep(steps[i], fmt.Sprintf("%s[%d]", prefix, i)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStep validates a single step, recursing into loop and conditional
// bodies. The field argument names the step's position for error reporting.
func ValidateStep(step Step, field string) error {
	if step.Delay < 0 {
		return macrowerrors.NewValidationError(field+".delay", "delay must not be negative", nil)
	}

	v := validatorInstance()

	switch step.Kind {
	case KindMouseMove:
		if step.MouseMove == nil {
			return missingPayloadErr(field, step.Kind)
		}
	case KindMouseClick:
		if step.MouseClick == nil {
			return missingPayloadErr(field, step.Kind)
		}
		if err := v.Struct(step.MouseClick); err != nil {
			return convertValidationError(err, field)
		}
	case KindMouseHold:
		if step.MouseHold == nil {
			return missingPayloadErr(field, step.Kind)
		}
		if err := v.Struct(step.MouseHold); err != nil {
			return convertValidationError(err, field)
		}
	case KindMouseRelease:
		if step.MouseRelease == nil {
			return missingPayloadErr(field, step.Kind)
		}
		if err := v.Struct(step.MouseRelease); err != nil {
			return convertValidationError(err, field)
		}
	case KindKeyType:
		if step.KeyType == nil {
			return missingPayloadErr(field, step.Kind)
		}
		if err := v.Struct(step.KeyType); err != nil {
			return convertValidationError(err, field)
		}
	case KindKeyPress:
		if step.KeyPress == nil {
			return missingPayloadErr(field, step.Kind)
		}
		if err := v.Struct(step.KeyPress); err != nil {
			return convertValidationError(err, field)
		}
	case KindImageFind:
		if step.ImageFind == nil {
			return missingPayloadErr(field, step.Kind)
		}
		if err := v.Struct(step.ImageFind); err != nil {
			return convertValidationError(err, field)
		}
	case KindConditional:
		if step.Conditional == nil {
			return missingPayloadErr(field, step.Kind)
		}
		if err := v.Struct(step.Conditional.Predicate); err != nil {
			return convertValidationError(err, field+".predicate")
		}
		if err := validateSteps(step.Conditional.Then, field+".then"); err != nil {
			return err
		}
		if err := validateSteps(step.Conditional.Else, field+".else"); err != nil {
			return err
		}
	case KindLoop:
		if step.Loop == nil {
			return missingPayloadErr(field, step.Kind)
		}
		if step.Loop.Count < 1 {
			return macrowerrors.NewValidationError(field+".count", "iteration count must be a positive integer", nil)
		}
		if err := validateSteps(step.Loop.Body, field+".body"); err != nil {
			return err
		}
	default:
		return macrowerrors.NewValidationError(field+".kind", fmt.Sprintf("unknown step kind %q", step.Kind), nil)
	}

	return nil
}

func missingPayloadErr(field, kind string) error {
	return macrowerrors.NewValidationError(field, fmt.Sprintf("%s payload is required", kind), nil)
}

func convertValidationError(err error, prefix string) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := prefix + "." + yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return macrowerrors.NewValidationError(field, msg, err)
	}

	return macrowerrors.NewValidationError(prefix, err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	// Drop the struct type name; keep only the field path.
	if len(parts) > 1 {
		parts = parts[1:]
	}
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}
