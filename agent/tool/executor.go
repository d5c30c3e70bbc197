package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
)

var errMissingExtraction = errors.New("extraction is required")

// Executor runs one tool call. A failed call returns both a result whose
// Error is safe to show the model and the underlying error.
type Executor func(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error)

var _ contractx.ToolGateway = Executor(nil)

func (e Executor) Execute(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	return e(ctx, req)
}

func NewExecutor(tools contractx.ToolSet) Executor {
	return func(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
		if tools == nil {
			return failed(req.Tool, fmt.Errorf("%w: tool=%s is unavailable", contractx.ErrToolExecution, req.Tool))
		}

		switch req.Tool {
		case contractx.ToolExtract:
			text, err := stringArg(req.Args, "text")
			if err != nil {
				return failed(req.Tool, err)
			}
			out, err := tools.Extract(ctx, text)
			if err != nil {
				return failed(req.Tool, err)
			}
			return contractx.ToolResult{Tool: req.Tool, Result: out}, nil

		case contractx.ToolDiagnose:
			ext, err := ExtractionArg(req.Args)
			if err != nil {
				return failed(req.Tool, err)
			}
			out, err := tools.Diagnose(ctx, ext)
			if err != nil {
				return failed(req.Tool, err)
			}
			return contractx.ToolResult{Tool: req.Tool, Result: out}, nil

		case contractx.ToolValidate:
			ext, err := ExtractionArg(req.Args)
			if err != nil {
				return failed(req.Tool, err)
			}
			return contractx.ToolResult{Tool: req.Tool, Result: tools.Validate(ext)}, nil

		default:
			return failed(req.Tool, fmt.Errorf("%w: unknown tool %q", contractx.ErrToolExecution, req.Tool))
		}
	}
}

func failed(tool contractx.ToolKind, err error) (contractx.ToolResult, error) {
	return contractx.ToolResult{Tool: tool, Error: err.Error()}, err
}

// ParseArgs decodes the raw JSON arguments of a model tool call.
func ParseArgs(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: tool arguments are not a JSON object: %w", contractx.ErrValidation, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", contractx.ErrValidation, key)
	}
	v, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", contractx.ErrValidation, key)
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s is empty", contractx.ErrValidation, key)
	}
	return v, nil
}

// ExtractionArg reads the "extraction" argument. It accepts a typed value,
// a decoded JSON object or a JSON string.
func ExtractionArg(args map[string]any) (medicalx.MedicalExtraction, error) {
	raw, ok := args["extraction"]
	if !ok || raw == nil {
		return medicalx.MedicalExtraction{}, fmt.Errorf("%w: %w", contractx.ErrValidation, errMissingExtraction)
	}

	switch v := raw.(type) {
	case medicalx.MedicalExtraction:
		return v, nil
	case *medicalx.MedicalExtraction:
		if v == nil {
			return medicalx.MedicalExtraction{}, fmt.Errorf("%w: %w", contractx.ErrValidation, errMissingExtraction)
		}
		return *v, nil
	case string:
		return decodeExtraction([]byte(v))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return medicalx.MedicalExtraction{}, fmt.Errorf("%w: encode extraction: %w", contractx.ErrValidation, err)
		}
		return decodeExtraction(b)
	}
}

func decodeExtraction(b []byte) (medicalx.MedicalExtraction, error) {
	var out medicalx.MedicalExtraction
	if err := json.Unmarshal(b, &out); err != nil {
		return medicalx.MedicalExtraction{}, fmt.Errorf("%w: extraction is malformed: %w", contractx.ErrValidation, err)
	}
	return out, nil
}

// HasExtraction reports whether args carry a usable extraction argument.
func HasExtraction(args map[string]any) bool {
	v, ok := args["extraction"]
	if !ok || v == nil {
		return false
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x) != ""
	case map[string]any:
		return len(x) > 0
	}
	return true
}
