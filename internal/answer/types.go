// Package answer defines the structured answer envelope every ask
// returns, the defensive parser for completion output, and the
// synthesizer that routes questions to deterministic, example-lookup,
// or generative paths.
package answer

import "fmt"

type CodeBlock struct {
	Language string `json:"language,omitempty"`
	Title    string `json:"title,omitempty"`
	Code     string `json:"code"`
}

type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// StructuredAnswer is the single envelope for every answer, including
// failures. Errors are carried in Errors rather than transport codes
// so a client renders them the same way as any other answer.
type StructuredAnswer struct {
	Type        string                 `json:"type"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	CodeBlocks  []CodeBlock            `json:"code_blocks,omitempty"`
	Tables      []Table                `json:"tables,omitempty"`
	Lists       [][]string             `json:"lists,omitempty"`
	Links       []string               `json:"links,omitempty"`
	Notes       []string               `json:"notes,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
	Errors      []string               `json:"errors,omitempty"`
	Values      map[string]interface{} `json:"values,omitempty"`
	ShortAnswer string                 `json:"short_answer,omitempty"`
}

// IsError reports whether this answer describes a failure.
func (a *StructuredAnswer) IsError() bool {
	return a.Type == "error" || len(a.Errors) > 0
}

// DetermineType classifies an answer by its populated sections, used
// when the producing path did not set an explicit type.
func DetermineType(a *StructuredAnswer) string {
	if a.Type == "error" {
		return "error"
	}
	switch {
	case len(a.CodeBlocks) > 0 && a.Description == "":
		return "code"
	case len(a.Tables) > 0 && len(a.CodeBlocks) == 0:
		return "table"
	case len(a.Lists) > 0 && len(a.CodeBlocks) == 0:
		return "list"
	case len(a.CodeBlocks) > 0 && a.Description != "":
		return "api"
	case len(a.Description) > 100:
		return "explanatory"
	default:
		return "simple"
	}
}

// Error envelope constructors. Each failure category in the system
// maps to one of these.

func NoDocument() *StructuredAnswer {
	return &StructuredAnswer{
		Type:   "error",
		Errors: []string{"No documentation has been processed yet. Please upload documentation first."},
	}
}

func NoEndpoints() *StructuredAnswer {
	return &StructuredAnswer{
		Type:   "error",
		Errors: []string{"No documentation has been processed yet or no endpoints were extracted. Please upload the API documentation first."},
	}
}

func NotFound(msg string) *StructuredAnswer {
	return &StructuredAnswer{
		Type:   "error",
		Errors: []string{msg},
	}
}

func RetrievalUnavailable(err error) *StructuredAnswer {
	return &StructuredAnswer{
		Type:   "error",
		Errors: []string{fmt.Sprintf("Retrieval is currently unavailable: %v", err)},
	}
}

func Internal(err error) *StructuredAnswer {
	return &StructuredAnswer{
		Type:   "error",
		Errors: []string{fmt.Sprintf("Error processing question: %v", err)},
	}
}
