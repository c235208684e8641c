package analysis

import "github.com/SaltyFrappuccino/AI-Mammoth-API/internal/gigachat"

// Function schemas offered to the model, one per stage. The model is asked,
// not forced, to answer through these; extraction falls back to prose when it
// does not.

func requirementsSchema() gigachat.FunctionSchema {
	return gigachat.FunctionSchema{
		Name:        "requirements_analysis",
		Description: "Structured analysis of software requirements",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"functional_requirements": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":          map[string]any{"type": "string", "description": "Requirement identifier (FR1, FR2, ...)"},
							"description": map[string]any{"type": "string"},
							"priority":    map[string]any{"type": "string", "description": "High, Medium or Low"},
							"clarity":     map[string]any{"type": "string", "description": "Clear, Ambiguous or Unclear"},
						},
					},
				},
				"non_functional_requirements": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":          map[string]any{"type": "string"},
							"description": map[string]any{"type": "string"},
							"type":        map[string]any{"type": "string", "description": "Performance, Security, Usability, ..."},
							"priority":    map[string]any{"type": "string"},
						},
					},
				},
				"issues": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"type":        map[string]any{"type": "string", "description": "Contradiction, Ambiguity, Missing, ..."},
							"description": map[string]any{"type": "string"},
						},
					},
				},
				"recommendations": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"summary":         map[string]any{"type": "string", "description": "Overall assessment of requirement quality"},
			},
			"required": []string{"functional_requirements", "non_functional_requirements", "issues", "recommendations", "summary"},
		},
	}
}

func codeSchema() gigachat.FunctionSchema {
	return gigachat.FunctionSchema{
		Name:        "code_analysis",
		Description: "Structured analysis of source code",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"code_quality": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"rating":     map[string]any{"type": "number", "description": "Code quality score from 1 to 10"},
						"strengths":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"weaknesses": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
				"potential_bugs": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"description": map[string]any{"type": "string"},
							"severity":    map[string]any{"type": "string", "description": "Critical, High, Medium or Low"},
							"location":    map[string]any{"type": "string"},
						},
					},
				},
				"recommendations": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"summary":         map[string]any{"type": "string"},
			},
			"required": []string{"code_quality", "potential_bugs", "recommendations", "summary"},
		},
	}
}

func testCasesSchema() gigachat.FunctionSchema {
	return gigachat.FunctionSchema{
		Name:        "test_cases_analysis",
		Description: "Structured analysis of test coverage against requirements",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"covered_requirements":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"uncovered_requirements": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"gaps": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"description": map[string]any{"type": "string"},
							"severity":    map[string]any{"type": "string"},
						},
					},
				},
				"recommendations": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"summary":         map[string]any{"type": "string"},
			},
			"required": []string{"covered_requirements", "gaps", "recommendations", "summary"},
		},
	}
}

func documentationSchema() gigachat.FunctionSchema {
	return gigachat.FunctionSchema{
		Name:        "documentation_analysis",
		Description: "Structured analysis of documentation quality",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"completeness": map[string]any{"type": "number", "description": "Completeness score from 1 to 10"},
				"clarity":      map[string]any{"type": "number", "description": "Clarity score from 1 to 10"},
				"gaps":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"recommendations": map[string]any{
					"type": "array", "items": map[string]any{"type": "string"},
				},
				"summary": map[string]any{"type": "string"},
			},
			"required": []string{"completeness", "clarity", "gaps", "recommendations", "summary"},
		},
	}
}

func securitySchema() gigachat.FunctionSchema {
	return gigachat.FunctionSchema{
		Name:        "security_analysis",
		Description: "Security analysis of source code",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"vulnerabilities": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"type":         map[string]any{"type": "string", "description": "Vulnerability class"},
							"severity":     map[string]any{"type": "string", "description": "Critical, High, Medium or Low"},
							"description":  map[string]any{"type": "string"},
							"location":     map[string]any{"type": "string"},
							"code_snippet": map[string]any{"type": "string"},
							"mitigation":   map[string]any{"type": "string"},
							"cwe_id":       map[string]any{"type": "string", "description": "CWE identifier"},
						},
					},
				},
				"overall_security_score": map[string]any{"type": "number", "description": "Overall security score from 0 to 10"},
				"recommendations":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"vulnerabilities", "overall_security_score"},
		},
	}
}

func bugSynthesisSchema() gigachat.FunctionSchema {
	return gigachat.FunctionSchema{
		Name:        "bug_analysis_result",
		Description: "Result of the requirements-vs-implementation bug analysis",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bug_count": map[string]any{"type": "integer", "description": "Number of confirmed bugs"},
				"bugs": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"description":     map[string]any{"type": "string", "description": "Short description of the bug"},
							"cause":           map[string]any{"type": "string", "description": "Technical root cause"},
							"severity":        map[string]any{"type": "string", "description": "Critical, High, Medium or Low"},
							"location":        map[string]any{"type": "string", "description": "Exact place in the code"},
							"impact":          map[string]any{"type": "string", "description": "Effect on system behavior"},
							"recommendations": map[string]any{"type": "string", "description": "Concrete remediation steps"},
						},
						"required": []string{"description", "severity", "impact", "recommendations"},
					},
				},
				"explanations": map[string]any{"type": "string", "description": "Narrative explanation of the findings"},
			},
			"required": []string{"bug_count", "bugs"},
		},
	}
}

func reportSynthesisSchema() gigachat.FunctionSchema {
	return gigachat.FunctionSchema{
		Name:        "analysis_report",
		Description: "Final compliance report assembled from all stage analyses",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"final_report":      map[string]any{"type": "string", "description": "Overall compliance narrative"},
				"bugs_explanations": map[string]any{"type": "string"},
				"recommendations": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"text":     map[string]any{"type": "string"},
							"priority": map[string]any{"type": "string", "description": "High, Medium or Low"},
							"type":     map[string]any{"type": "string", "description": "Performance, Security, Quality or Best Practice"},
						},
						"required": []string{"text"},
					},
				},
			},
			"required": []string{"final_report"},
		},
	}
}
