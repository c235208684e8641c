// Package analysis implements the multi-stage analysis orchestrator: a fixed
// pipeline of LLM calls over one input bundle, merging partial structured
// outputs into an aggregate report and degrading per stage instead of
// aborting the run.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/config"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/gigachat"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("ai-mammoth-api/analysis")

// ErrEmptyBundle is returned when the input carries nothing to analyze. It is
// the only error Analyze surfaces directly; stage failures are embedded in
// the report's diagnostic trail instead.
var ErrEmptyBundle = errors.New("analysis bundle carries no material to analyze")

// Completer is the slice of the gateway client the orchestrator depends on.
type Completer interface {
	CompleteStructured(ctx context.Context, env *gigachat.RequestEnvelope, fns []gigachat.FunctionSchema, mode gigachat.CallMode) (*gigachat.RawResponse, error)
}

// Orchestrator runs the analysis pipeline. Stages within one run execute
// sequentially because later stages consume earlier outputs; independent runs
// are safely concurrent.
type Orchestrator struct {
	client Completer
	cfg    config.AnalysisConfig

	// In-flight runs: runID → cancel func, so an external cancel aborts the
	// in-flight HTTP call and skips the remaining stages.
	runsMu sync.Mutex
	runs   map[string]context.CancelFunc
}

// NewOrchestrator creates an orchestrator over the given gateway client.
func NewOrchestrator(client Completer, cfg config.AnalysisConfig) *Orchestrator {
	return &Orchestrator{
		client: client,
		cfg:    cfg,
		runs:   make(map[string]context.CancelFunc),
	}
}

// Cancel aborts a running analysis. Returns false when no such run is in
// flight.
func (o *Orchestrator) Cancel(runID string) bool {
	o.runsMu.Lock()
	cancel, ok := o.runs[runID]
	o.runsMu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Analyze executes the full pipeline over the bundle and always returns a
// complete AggregateReport for a finished run, however degraded. The returned
// error is non-nil only for an empty bundle or a cancelled run; in the
// cancelled case the partial report is returned alongside context.Canceled.
func (o *Orchestrator) Analyze(ctx context.Context, runID string, bundle *models.AnalysisBundle) (*models.AggregateReport, error) {
	if bundle == nil || bundle.IsEmpty() {
		return nil, ErrEmptyBundle
	}
	if runID == "" {
		runID = uuid.New().String()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.runsMu.Lock()
	o.runs[runID] = cancel
	o.runsMu.Unlock()
	defer func() {
		o.runsMu.Lock()
		delete(o.runs, runID)
		o.runsMu.Unlock()
	}()

	start := time.Now()
	report := &models.AggregateReport{
		RunID:        runID,
		DetailedBugs: []models.Bug{},
		Stages:       []models.StageResult{},
		StartedAt:    start.UTC(),
	}
	st := &stageState{bundle: bundle, outputs: make(map[string]stageOutput)}

	security := o.cfg.AnalyzeSecurity
	if bundle.AnalyzeSecurity != nil {
		security = *bundle.AnalyzeSecurity
	}

	stages := pipeline(security)
	log.Info().
		Str("run_id", runID).
		Int("stages", len(stages)).
		Bool("security", security).
		Msg("analysis run started")

	for _, sg := range stages {
		if runCtx.Err() != nil {
			break
		}
		rec, out := o.runStage(runCtx, sg, st)
		report.Stages = append(report.Stages, rec)
		st.outputs[sg.name] = out

		log.Info().
			Str("run_id", runID).
			Str("stage", sg.name).
			Str("status", string(rec.Status)).
			Dur("elapsed", rec.Elapsed).
			Msg("stage finished")
	}

	o.merge(report, st)
	report.Elapsed = time.Since(start)

	if err := runCtx.Err(); err != nil {
		log.Warn().Str("run_id", runID).Msg("analysis run cancelled")
		return report, err
	}

	log.Info().
		Str("run_id", runID).
		Int("bugs", report.BugsCount).
		Bool("degraded", report.Degraded()).
		Dur("elapsed", report.Elapsed).
		Msg("analysis run completed")
	return report, nil
}

// runStage invokes the gateway for one stage and converts every failure mode
// into a recorded StageResult. Nothing escapes the stage boundary.
func (o *Orchestrator) runStage(ctx context.Context, sg stage, st *stageState) (models.StageResult, stageOutput) {
	ctx, span := tracer.Start(ctx, "analysis."+sg.name)
	defer span.End()

	start := time.Now()
	rec := models.StageResult{Stage: sg.name, Attempts: 1}

	env := &gigachat.RequestEnvelope{
		Model:       o.cfg.Model,
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
		Messages: []gigachat.Message{
			{Role: gigachat.RoleSystem, Content: sg.system},
			{Role: gigachat.RoleUser, Content: sg.input(st)},
		},
	}

	raw, err := o.client.CompleteStructured(ctx, env, []gigachat.FunctionSchema{sg.schema}, gigachat.CallAuto)
	rec.Elapsed = time.Since(start)
	if raw != nil && raw.Attempts > 0 {
		rec.Attempts = raw.Attempts
	}

	if err != nil {
		var te *gigachat.TransportError
		if errors.As(err, &te) {
			rec.Attempts = te.Attempts
		}
		rec.Status = models.StageFailed
		rec.Error = err.Error()
		span.SetAttributes(attribute.String("stage.status", string(rec.Status)))
		log.Error().Err(err).Str("stage", sg.name).Msg("stage call failed")
		return rec, stageOutput{}
	}

	res := gigachat.Extract(raw, sg.schema.Name)
	var out stageOutput
	switch res.Kind {
	case gigachat.KindStructured:
		rec.Status = models.StageOK
		out = stageOutput{result: res, context: payloadContext(res.Structured)}
	case gigachat.KindText:
		rec.Status = models.StageDegraded
		out = stageOutput{result: res, context: res.Text}
	default:
		rec.Status = models.StageFailed
		rec.Error = res.Diagnostic
		out = stageOutput{result: res}
	}
	span.SetAttributes(attribute.String("stage.status", string(rec.Status)))
	return rec, out
}

// payloadContext renders a structured payload as downstream prompt context:
// the summary field when the schema has one, compact JSON otherwise.
func payloadContext(payload map[string]any) string {
	for _, key := range []string{"summary", "final_report", "explanations"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(b)
}

// merge folds the accumulated stage outputs into the final report. Absence of
// evidence is not evidence of bugs: a failed stage contributes zero findings,
// never a guess.
func (o *Orchestrator) merge(report *models.AggregateReport, st *stageState) {
	if out, ok := st.outputs[StageBugs]; ok && out.result.IsStructured() {
		payload := out.result.Structured
		var bugs []models.Bug
		if err := decodeField(payload, "bugs", &bugs); err == nil && bugs != nil {
			report.DetailedBugs = bugs
		}
		switch {
		case len(report.DetailedBugs) > 0:
			report.BugsCount = len(report.DetailedBugs)
		default:
			if n, ok := payload["bug_count"].(float64); ok {
				report.BugsCount = int(n)
			}
		}
		if s, ok := payload["explanations"].(string); ok {
			report.BugsExplanations = s
		}
	}

	if out, ok := st.outputs[StageSecurity]; ok && out.result.IsStructured() {
		var findings []models.SecurityFinding
		if err := decodeField(out.result.Structured, "vulnerabilities", &findings); err == nil {
			report.SecurityFindings = findings
		}
	}

	out, ok := st.outputs[StageReport]
	switch {
	case ok && out.result.IsStructured():
		payload := out.result.Structured
		if s, ok := payload["final_report"].(string); ok {
			report.FinalReport = s
		}
		if s, ok := payload["bugs_explanations"].(string); ok && s != "" {
			report.BugsExplanations = s
		}
		var recs []models.Recommendation
		if err := decodeField(payload, "recommendations", &recs); err == nil {
			report.Recommendations = recs
		}
	case ok && out.result.IsText():
		report.FinalReport = out.result.Text
	}

	if report.FinalReport == "" {
		report.FinalReport = fallbackNarrative(report)
	}
}

// fallbackNarrative covers the case where report synthesis itself produced
// nothing usable.
func fallbackNarrative(report *models.AggregateReport) string {
	anyUsable := false
	for _, s := range report.Stages {
		if s.Usable() {
			anyUsable = true
			break
		}
	}
	if !anyUsable {
		return "Analysis could not be completed: no pipeline stage produced usable output. " +
			"See the stage diagnostic trail for details."
	}
	return "The final report could not be synthesized; partial stage analyses are available " +
		"in the diagnostic trail."
}

// decodeField converts a loosely-typed payload field into a typed target via
// a JSON round trip.
func decodeField(payload map[string]any, key string, target any) error {
	v, ok := payload[key]
	if !ok {
		return errors.New("field absent: " + key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, target)
}
