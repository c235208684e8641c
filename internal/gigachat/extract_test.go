package gigachat_test

import (
	"encoding/json"
	"testing"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/gigachat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_EmptyResponse(t *testing.T) {
	res := gigachat.Extract(&gigachat.RawResponse{}, "bug_analysis_result")
	require.True(t, res.Failed())
	assert.Equal(t, "empty response", res.Diagnostic)

	res = gigachat.Extract(nil, "bug_analysis_result")
	assert.True(t, res.Failed())
}

func TestExtract_StructuredPayload(t *testing.T) {
	raw := &gigachat.RawResponse{
		Choices: []gigachat.Choice{{
			FinishReason: gigachat.FinishFunctionCall,
			Message: gigachat.ChoiceMessage{
				FunctionCall: &gigachat.FunctionCall{
					Name:      "bug_analysis_result",
					Arguments: `{"bug_count": 2, "bugs": [{"description": "off by one"}]}`,
				},
			},
		}},
	}

	res := gigachat.Extract(raw, "bug_analysis_result")
	require.True(t, res.IsStructured())
	assert.Equal(t, float64(2), res.Structured["bug_count"])
	bugs, ok := res.Structured["bugs"].([]any)
	require.True(t, ok)
	assert.Len(t, bugs, 1)
}

func TestExtract_MalformedArgumentsPreservesRaw(t *testing.T) {
	const broken = `{"bug_count": not json`
	raw := &gigachat.RawResponse{
		Choices: []gigachat.Choice{{
			FinishReason: gigachat.FinishFunctionCall,
			Message: gigachat.ChoiceMessage{
				FunctionCall: &gigachat.FunctionCall{Name: "bug_analysis_result", Arguments: broken},
			},
		}},
	}

	res := gigachat.Extract(raw, "bug_analysis_result")
	require.True(t, res.Failed())
	assert.Equal(t, broken, res.RawArguments, "raw argument string must be preserved for diagnostics")
	assert.Contains(t, res.Diagnostic, "malformed function-call arguments")
}

func TestExtract_TextFallbackIsNotAFailure(t *testing.T) {
	raw := &gigachat.RawResponse{
		Choices: []gigachat.Choice{{
			FinishReason: gigachat.FinishStop,
			Message:      gigachat.ChoiceMessage{Content: "The code looks consistent with the requirements."},
		}},
	}

	res := gigachat.Extract(raw, "bug_analysis_result")
	require.True(t, res.IsText())
	assert.Equal(t, "The code looks consistent with the requirements.", res.Text)
	assert.False(t, res.Failed())
}

func TestExtract_MismatchedFunctionNameFallsBackToText(t *testing.T) {
	raw := &gigachat.RawResponse{
		Choices: []gigachat.Choice{{
			FinishReason: gigachat.FinishFunctionCall,
			Message: gigachat.ChoiceMessage{
				Content:      "partial prose",
				FunctionCall: &gigachat.FunctionCall{Name: "something_else", Arguments: `{}`},
			},
		}},
	}

	res := gigachat.Extract(raw, "bug_analysis_result")
	require.True(t, res.IsText())
	assert.Equal(t, "partial prose", res.Text)
}

func TestExtract_StructuredPreferredOverText(t *testing.T) {
	raw := &gigachat.RawResponse{
		Choices: []gigachat.Choice{{
			FinishReason: gigachat.FinishFunctionCall,
			Message: gigachat.ChoiceMessage{
				Content:      "here is your analysis",
				FunctionCall: &gigachat.FunctionCall{Name: "bug_analysis_result", Arguments: `{"bug_count": 0}`},
			},
		}},
	}

	res := gigachat.Extract(raw, "bug_analysis_result")
	require.True(t, res.IsStructured())
	assert.Equal(t, float64(0), res.Structured["bug_count"])
}

func TestExtract_UnrecognizedShape(t *testing.T) {
	raw := &gigachat.RawResponse{
		Choices: []gigachat.Choice{{FinishReason: gigachat.FinishError}},
	}

	res := gigachat.Extract(raw, "bug_analysis_result")
	require.True(t, res.Failed())
	assert.Equal(t, "unrecognized response shape", res.Diagnostic)
}

func TestFunctionCall_ArgumentsAcceptStringAndObject(t *testing.T) {
	var asString gigachat.FunctionCall
	require.NoError(t, json.Unmarshal([]byte(`{"name":"f","arguments":"{\"a\":1}"}`), &asString))
	assert.JSONEq(t, `{"a":1}`, asString.Arguments)

	var asObject gigachat.FunctionCall
	require.NoError(t, json.Unmarshal([]byte(`{"name":"f","arguments":{"a":1}}`), &asObject))
	assert.JSONEq(t, `{"a":1}`, asObject.Arguments)
}

func TestExtract_RoundTripStructuredPayload(t *testing.T) {
	args := `{"bug_count":1,"bugs":[{"description":"login check inverted","severity":"High"}]}`
	raw := &gigachat.RawResponse{
		Choices: []gigachat.Choice{{
			FinishReason: gigachat.FinishFunctionCall,
			Message: gigachat.ChoiceMessage{
				FunctionCall: &gigachat.FunctionCall{Name: "bug_analysis_result", Arguments: args},
			},
		}},
	}

	res := gigachat.Extract(raw, "bug_analysis_result")
	require.True(t, res.IsStructured())

	// Re-serializing the payload yields the same mapping.
	out, err := json.Marshal(res.Structured)
	require.NoError(t, err)
	assert.JSONEq(t, args, string(out))
}
