// Package validation provides input validation utilities.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Struct tags describe the
// program node configurations; the fluent validator checks request metadata.
//
// # Struct Tag Validation
//
//	type Shell struct {
//	    Command string `json:"command" validate:"required"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("workflowName", name).OneOf("systemName", system, allowed)
//	err := v.Validate()
package validation
