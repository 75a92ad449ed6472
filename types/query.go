package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

type ProcessingOptions struct {
	ChunkSize       int  `json:"chunk_size" validate:"omitempty,gte=100,lte=4000"`
	ChunkOverlap    int  `json:"chunk_overlap" validate:"omitempty,gte=0,lte=2000"`
	TopKRetrieval   int  `json:"top_k_retrieval" validate:"omitempty,gte=1,lte=50"`
	IncludeMetadata bool `json:"include_metadata"`
}

// Canonical defaults, shared by the API and the CLI.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 7
)

// Normalize fills unset options with the canonical defaults.
func (o *ProcessingOptions) Normalize() {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap == 0 {
		o.ChunkOverlap = DefaultChunkOverlap
	}
	if o.TopKRetrieval == 0 {
		o.TopKRetrieval = DefaultTopK
	}
}

type AnswerRequest struct {
	Documents         []string          `json:"documents" validate:"required,min=1,dive,required"`
	Questions         []string          `json:"questions" validate:"dive,required"`
	DocumentFormat    DocumentFormat    `json:"document_format,omitempty" validate:"omitempty,oneof=pdf docx email auto"`
	ProcessingOptions ProcessingOptions `json:"processing_options"`
	SessionID         string            `json:"session_id,omitempty"`
}

func (params *AnswerRequest) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}
