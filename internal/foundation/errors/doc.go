// Package errors provides the classified error primitives used across texbuilder.
//
// A ClassifiedError carries a category (config, filesystem, tool, build, ...)
// and a severity. Only fatal errors unwind a build; errors and warnings found
// while running tools are recorded in the build report instead and never
// surface as Go errors.
//
// Example usage:
//
//	err := errors.ToolError("cannot launch command").
//		WithContext("command", "lualatex").
//		Build()
package errors
