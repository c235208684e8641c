package analysis

import (
	"strings"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/gigachat"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/pkg/models"
)

// Stage names, also used as keys in the diagnostic trail. Order here is the
// fixed execution order.
const (
	StageRequirements  = "requirements"
	StageCode          = "code"
	StageTests         = "tests"
	StageDocumentation = "documentation"
	StageSecurity      = "security"
	StageBugs          = "bug-synthesis"
	StageReport        = "report-synthesis"
)

// stageState is what a stage may read: the immutable input bundle and the
// outputs of stages that already ran.
type stageState struct {
	bundle  *models.AnalysisBundle
	outputs map[string]stageOutput
}

// stageOutput is one finished stage's contribution to downstream context.
type stageOutput struct {
	result gigachat.ExtractedResult
	// context is the textual form fed to later stages: the structured
	// summary when available, the raw fallback prose otherwise, empty when
	// the stage failed.
	context string
}

// contextFor returns the named stage's downstream context, or a placeholder
// so later prompts always state which inputs were unavailable.
func (s *stageState) contextFor(name string) string {
	out, ok := s.outputs[name]
	if !ok || out.context == "" {
		return "(analysis unavailable)"
	}
	return out.context
}

// stage is one descriptor in the pipeline: its schema, its system prompt, and
// the selector that assembles its user prompt from the state.
type stage struct {
	name   string
	schema gigachat.FunctionSchema
	system string
	input  func(st *stageState) string
}

// pipeline returns the ordered stage descriptors for one run. Adding a stage
// means adding a descriptor; the runner is generic over them.
func pipeline(analyzeSecurity bool) []stage {
	stages := []stage{
		{
			name:   StageRequirements,
			schema: requirementsSchema(),
			system: requirementsPrompt,
			input: func(st *stageState) string {
				return "Analyze the following software requirements and provide a structured assessment:\n\n" +
					st.bundle.Requirements
			},
		},
		{
			name:   StageCode,
			schema: codeSchema(),
			system: codePrompt,
			input: func(st *stageState) string {
				return "Analyze the following source code and provide a structured report:\n\n```\n" +
					st.bundle.Code + "\n```"
			},
		},
		{
			name:   StageTests,
			schema: testCasesSchema(),
			system: testCasesPrompt,
			input: func(st *stageState) string {
				var b strings.Builder
				b.WriteString("Analyze the following test cases:\n\n```\n")
				b.WriteString(st.bundle.TestCases)
				b.WriteString("\n```\n")
				if st.bundle.Requirements != "" {
					b.WriteString("\nRequirements the tests should cover:\n\n```\n")
					b.WriteString(st.bundle.Requirements)
					b.WriteString("\n```\n")
				}
				return b.String()
			},
		},
		{
			name:   StageDocumentation,
			schema: documentationSchema(),
			system: documentationPrompt,
			input: func(st *stageState) string {
				var b strings.Builder
				b.WriteString("Analyze the following documentation:\n\n```\n")
				b.WriteString(st.bundle.Documentation)
				b.WriteString("\n```\n")
				if st.bundle.Requirements != "" {
					b.WriteString("\nSystem requirements for reference:\n\n```\n")
					b.WriteString(st.bundle.Requirements)
					b.WriteString("\n```\n")
				}
				return b.String()
			},
		},
	}

	if analyzeSecurity {
		stages = append(stages, stage{
			name:   StageSecurity,
			schema: securitySchema(),
			system: securityPrompt,
			input: func(st *stageState) string {
				return "Perform a security analysis of the following code and identify vulnerabilities:\n\n```\n" +
					st.bundle.Code + "\n```"
			},
		})
	}

	stages = append(stages,
		stage{
			name:   StageBugs,
			schema: bugSynthesisSchema(),
			system: bugSynthesisPrompt,
			input: func(st *stageState) string {
				var b strings.Builder
				b.WriteString("## Requirements:\n\n")
				b.WriteString(st.bundle.Requirements)
				b.WriteString("\n\n## Requirements analysis:\n\n")
				b.WriteString(st.contextFor(StageRequirements))
				b.WriteString("\n\n## Code analysis:\n\n")
				b.WriteString(st.contextFor(StageCode))
				b.WriteString("\n\n## Test coverage analysis:\n\n")
				b.WriteString(st.contextFor(StageTests))
				b.WriteString("\n\n## Documentation analysis:\n\n")
				b.WriteString(st.contextFor(StageDocumentation))
				b.WriteString("\n\nCompare the implementation against the requirements and identify real bugs. " +
					"If the code fully satisfies the requirements, report 0 bugs.")
				return b.String()
			},
		},
		stage{
			name:   StageReport,
			schema: reportSynthesisSchema(),
			system: reportSynthesisPrompt,
			input: func(st *stageState) string {
				var b strings.Builder
				b.WriteString("Assemble the final analysis report from these stage results.\n")
				for _, name := range []string{StageRequirements, StageCode, StageTests, StageDocumentation, StageSecurity, StageBugs} {
					if _, ok := st.outputs[name]; !ok && name == StageSecurity {
						continue // security stage disabled for this run
					}
					b.WriteString("\n## ")
					b.WriteString(name)
					b.WriteString(":\n\n")
					b.WriteString(st.contextFor(name))
					b.WriteString("\n")
				}
				return b.String()
			},
		},
	)

	return stages
}
