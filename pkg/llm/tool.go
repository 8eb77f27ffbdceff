package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"fin-analyzer-go/pkg/extractor"
)

// Tool is a function the agent may call during its reasoning loop. Call never fails:
// problems are reported back to the model as text.
type Tool interface {
	Name() string
	Definition() openai.Tool
	Call(ctx context.Context, arguments string) string
}

// DocumentTool lets the agent read a document by path.
type DocumentTool struct {
	extractor extractor.Extractor
}

// NewDocumentTool wraps ex as the agent's document reader.
func NewDocumentTool(ex extractor.Extractor) *DocumentTool {
	return &DocumentTool{extractor: ex}
}

func (t *DocumentTool) Name() string {
	return "read_financial_document"
}

func (t *DocumentTool) Definition() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        t.Name(),
			Description: "Reads and extracts text content from financial documents including PDF and TXT files.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"file_path": {
						Type:        jsonschema.String,
						Description: "Path to the uploaded financial document file",
					},
				},
				Required: []string{"file_path"},
			},
		},
	}
}

func (t *DocumentTool) Call(ctx context.Context, arguments string) string {
	var args struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return fmt.Sprintf("Error: invalid tool arguments: %v", err)
	}

	if _, err := os.Stat(args.FilePath); errors.Is(err, os.ErrNotExist) {
		return fmt.Sprintf("Error: File not found at path %s", args.FilePath)
	}

	text, err := t.extractor.Extract(ctx, args.FilePath)
	if err != nil {
		return fmt.Sprintf("Error while reading document: %v", err)
	}
	if text == "" && extractor.IsPDF(args.FilePath) {
		return "Warning: PDF text extraction returned empty content."
	}
	return text
}
