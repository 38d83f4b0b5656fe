// Package descriptor loads the run descriptor: who the reader is, what they
// want to get done and which documents to read.
package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/docrank/internal/schemas"
)

// Descriptor is the parsed input JSON.
type Descriptor struct {
	Metadata Metadata `json:"metadata"`
}

type Metadata struct {
	Persona        string     `json:"persona" validate:"required,notblank"`
	JobToBeDone    string     `json:"job_to_be_done" validate:"required,notblank"`
	InputDocuments []Document `json:"input_documents" validate:"dive"`
}

// Document names one input file. It decodes from either a bare filename or an
// object with a filename and optional title.
type Document struct {
	Filename string `json:"filename" validate:"required,notblank"`
	Title    string `json:"title,omitempty"`
}

func (d *Document) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		return json.Unmarshal(data, &d.Filename)
	}
	type plain Document
	return json.Unmarshal(data, (*plain)(d))
}

// Filenames returns the document filenames in descriptor order.
func (d *Descriptor) Filenames() []string {
	names := make([]string, len(d.Metadata.InputDocuments))
	for i, doc := range d.Metadata.InputDocuments {
		names[i] = doc.Filename
	}
	return names
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Parse decodes and validates descriptor JSON. With checkSchema the data is
// first validated against the descriptor schema.
func Parse(data []byte, checkSchema bool) (*Descriptor, error) {
	if checkSchema {
		if err := schemas.Validate(schemas.Descriptor, data); err != nil {
			return nil, err
		}
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	if err := validate.Struct(&d); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}
	return &d, nil
}

// Load reads and parses the descriptor at path.
func Load(path string, checkSchema bool) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	d, err := Parse(data, checkSchema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
