package pipeline

import "fmt"

// ConfigError reports unusable run inputs: arguments, descriptor or paths.
// It is raised before any document is processed.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// DocumentMissingError reports a listed document absent from the input
// directory. The run skips the document and continues.
type DocumentMissingError struct {
	Document string
	Path     string
	Cause    error
}

func (e *DocumentMissingError) Error() string {
	return fmt.Sprintf("document %s missing at %s", e.Document, e.Path)
}

func (e *DocumentMissingError) Unwrap() error {
	return e.Cause
}

// ModelError reports an embedding backend that failed to load or infer.
type ModelError struct {
	Message string
	Cause   error
}

func (e *ModelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("model error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("model error: %s", e.Message)
}

func (e *ModelError) Unwrap() error {
	return e.Cause
}
