// Package errors provides the classified error type used across assetpipe.
//
// Errors carry a category (config, compile, filesystem, ...), a severity and
// free-form context. The CLI adapter maps categories to process exit codes.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryCompile, "sass compilation failed").
//		WithContext("file", "src/scss/main.scss").
//		Build()
package errors
