package gigachat

import "encoding/json"

// ResultKind discriminates the extraction outcome.
type ResultKind string

const (
	// KindStructured means the model honored the requested schema.
	KindStructured ResultKind = "structured"
	// KindText means the model answered in prose; a designed degradation
	// path, not an error.
	KindText ResultKind = "text"
	// KindFailure means nothing usable could be recovered.
	KindFailure ResultKind = "failure"
)

// ExtractedResult is the normalized form of a raw gateway response. Exactly
// one of Structured, Text, or Diagnostic is meaningful, selected by Kind.
type ExtractedResult struct {
	Kind       ResultKind
	Structured map[string]any
	Text       string
	Diagnostic string
	// RawArguments preserves the unparseable argument text when a function
	// call carried malformed JSON. Never silently dropped.
	RawArguments string
}

// IsStructured reports whether the model returned clean schema-conforming data.
func (r ExtractedResult) IsStructured() bool { return r.Kind == KindStructured }

// IsText reports whether the result degraded to a prose fallback.
func (r ExtractedResult) IsText() bool { return r.Kind == KindText }

// Failed reports whether nothing usable was extracted.
func (r ExtractedResult) Failed() bool { return r.Kind == KindFailure }

func structuredResult(payload map[string]any) ExtractedResult {
	return ExtractedResult{Kind: KindStructured, Structured: payload}
}

func textResult(text string) ExtractedResult {
	return ExtractedResult{Kind: KindText, Text: text}
}

func failureResult(diag string) ExtractedResult {
	return ExtractedResult{Kind: KindFailure, Diagnostic: diag}
}

// Extract normalizes a raw response into an ExtractedResult.
//
// Policy, in order:
//  1. no choices → failure
//  2. finish_reason "function_call" with a matching name → parse arguments;
//     a parse failure keeps the raw argument text for diagnostics
//  3. free text present → text fallback (the model is not contractually
//     bound to honor structured-output requests)
//  4. otherwise → failure
//
// When a choice carries both a function call and free text, the structured
// payload wins.
func Extract(raw *RawResponse, expectedName string) ExtractedResult {
	if raw == nil || len(raw.Choices) == 0 {
		return failureResult("empty response")
	}

	choice := raw.Choices[0]
	fc := choice.Message.FunctionCall

	if choice.FinishReason == FinishFunctionCall && fc != nil && fc.Name == expectedName {
		var payload map[string]any
		if err := json.Unmarshal([]byte(fc.Arguments), &payload); err != nil {
			return ExtractedResult{
				Kind:         KindFailure,
				Diagnostic:   "malformed function-call arguments: " + err.Error(),
				RawArguments: fc.Arguments,
			}
		}
		return structuredResult(payload)
	}

	if choice.Message.Content != "" {
		return textResult(choice.Message.Content)
	}

	return failureResult("unrecognized response shape")
}
