// Package generation runs one prompt/response exchange: render the prompt,
// call the provider, clean the reply and parse it into a typed value.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"race_preview/pkg/core/extract"
	"race_preview/pkg/core/llm"
	"race_preview/pkg/core/logger"
	"race_preview/pkg/core/prompt"
)

// Kind classifies an Outcome.
type Kind int

const (
	Success Kind = iota
	// FailureConfig means the prompt could not be rendered. No request was sent.
	FailureConfig
	// FailureService means the provider call failed or returned nothing usable.
	FailureService
	// FailureParse means the parse callback panicked.
	FailureParse
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case FailureConfig:
		return "config"
	case FailureService:
		return "service"
	case FailureParse:
		return "parse"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Job is one unit of work. Parse receives the cleaned reply; a nil Parse
// keeps the cleaned text as the value. Missing, when set, lists required
// fields the reply lacks; they are logged and the job still succeeds.
type Job struct {
	Entity   string
	Template *prompt.PromptTemplate
	Vars     prompt.Vars
	Parse    func(cleaned string) any
	Missing  func(cleaned string) []string
}

// Outcome is the result of a Job. Err is set for every failure kind.
type Outcome struct {
	Entity string
	Kind   Kind
	Value  any
	Raw    string
	Err    error
	// Missing holds the required fields absent from a successful reply.
	Missing []string
}

func (o Outcome) Succeeded() bool {
	return o.Kind == Success
}

// Unit executes jobs against one provider with shared request settings.
type Unit struct {
	provider llm.Provider
	base     llm.Request
	timeout  time.Duration
	log      *logger.Logger
}

// NewUnit returns a Unit. base supplies model, output budget and web search
// for every request; timeout bounds each provider call when positive.
func NewUnit(provider llm.Provider, base llm.Request, timeout time.Duration, log *logger.Logger) *Unit {
	if log == nil {
		log = logger.NewNop()
	}
	return &Unit{provider: provider, base: base, timeout: timeout, log: log}
}

// Run executes job. It never returns an error; failures are reported in the
// Outcome.
func (u *Unit) Run(ctx context.Context, job Job) Outcome {
	out := Outcome{Entity: job.Entity}
	log := u.log.With("entity", job.Entity)

	if job.Template == nil {
		out.Kind = FailureConfig
		out.Err = errors.New("no prompt template")
		return out
	}

	text, err := prompt.Render(job.Template, job.Vars)
	if err != nil {
		out.Kind = FailureConfig
		out.Err = err
		log.Warn("prompt render failed", "prompt", job.Template.ID, "error", err)
		return out
	}

	req := u.base
	req.Prompt = text
	req.SystemPrompt = job.Template.SystemPrompt

	callCtx := ctx
	if u.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	start := time.Now()
	log.Debug("generation started", "prompt", job.Template.ID)
	raw, err := generateSafely(callCtx, u.provider, &req)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		out.Kind = FailureService
		out.Err = err
		log.Warn("generation failed", "prompt", job.Template.ID, "elapsed", time.Since(start), "error", err)
		return out
	}
	out.Raw = raw

	cleaned := extract.Clean(raw)
	value, err := parseSafely(job.Parse, cleaned)
	if err != nil {
		out.Kind = FailureParse
		out.Err = err
		log.Error("parse failed", "prompt", job.Template.ID, "error", err)
		return out
	}
	if job.Missing != nil {
		if out.Missing = job.Missing(cleaned); len(out.Missing) > 0 {
			log.Warn("reply missing required fields", "prompt", job.Template.ID, "fields", out.Missing)
		}
	}

	out.Kind = Success
	out.Value = value
	log.Info("generation finished", "prompt", job.Template.ID, "elapsed", time.Since(start), "chars", len(raw))
	return out
}

// generateSafely turns a provider panic into a service error so one unit
// cannot take down the batch.
func generateSafely(ctx context.Context, p llm.Provider, req *llm.Request) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return p.Generate(ctx, req)
}

func parseSafely(parse func(string) any, cleaned string) (value any, err error) {
	if parse == nil {
		return cleaned, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse panic: %v", r)
		}
	}()
	return parse(cleaned), nil
}
