// Package pipeline drives a race weekend run: shared context, the per-driver
// fan-out and the derived sections, then the document write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"race_preview/pkg/core/generation"
	"race_preview/pkg/core/llm"
	"race_preview/pkg/core/logger"
	"race_preview/pkg/core/preview"
	"race_preview/pkg/core/prompt"
	"race_preview/pkg/core/standings"
	"race_preview/pkg/core/store"
)

// ErrUnknownDriver is returned when a regeneration names a driver that is
// not in the configured list.
var ErrUnknownDriver = errors.New("unknown driver")

// Stage is a step of the full run.
type Stage int

const (
	StageInit Stage = iota
	StageContextGenerated
	StageEntitiesGenerated
	StageDerivedSectionsGenerated
	StagePersisted
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageContextGenerated:
		return "context_generated"
	case StageEntitiesGenerated:
		return "entities_generated"
	case StageDerivedSectionsGenerated:
		return "derived_sections_generated"
	case StagePersisted:
		return "persisted"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StandingsSource supplies the championship history.
type StandingsSource interface {
	Fetch(ctx context.Context, season string) (*standings.Standings, error)
}

// Archiver keeps a copy of every written document. LatestRun returns
// store.ErrNotFound when nothing matches.
type Archiver interface {
	SaveRun(ctx context.Context, doc *store.Document) error
	LatestRun(ctx context.Context, circuit, season string) (*store.Document, error)
}

// Options are the static inputs of a run.
type Options struct {
	Drivers     []preview.Driver
	Circuit     string
	RaceDate    string
	Season      string
	Sessions    map[string]string
	OutputPath  string
	ImagePath   string
	Concurrency int
}

// Orchestrator runs full and partial generations.
type Orchestrator struct {
	runner    Runner
	prompts   *prompt.Registry
	opts      Options
	log       *logger.Logger
	standings StandingsSource
	images    llm.ImageGenerator
	archive   Archiver

	now   func() time.Time
	newID func() string
	// onStage is called after every transition.
	onStage func(Stage)
}

func NewOrchestrator(runner Runner, prompts *prompt.Registry, opts Options, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		runner:  runner,
		prompts: prompts,
		opts:    opts,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
		onStage: func(Stage) {},
	}
}

// SetStandings enables the standings section.
func (o *Orchestrator) SetStandings(s StandingsSource) { o.standings = s }

// SetImageGenerator enables the header image.
func (o *Orchestrator) SetImageGenerator(g llm.ImageGenerator) { o.images = g }

// SetArchive enables archiving of written documents.
func (o *Orchestrator) SetArchive(a Archiver) { o.archive = a }

// OnStage registers a callback for stage transitions.
func (o *Orchestrator) OnStage(fn func(Stage)) { o.onStage = fn }

func (o *Orchestrator) enter(stage Stage, kv ...interface{}) {
	o.log.Info("stage reached", append([]interface{}{"stage", stage.String()}, kv...)...)
	o.onStage(stage)
}

// Report summarises a full run.
type Report struct {
	Event          Event
	FailedDrivers  map[string]error
	FailedSections map[string]error
	ImageWritten   bool
}

// RunFull generates every section and writes the document. Only a failed
// race context or a failed write aborts the run; every other failure is
// recorded in the Report and degrades its section.
func (o *Orchestrator) RunFull(ctx context.Context) (*store.Document, *Report, error) {
	report := &Report{FailedDrivers: map[string]error{}, FailedSections: map[string]error{}}
	o.enter(StageInit)

	event, err := o.resolveEvent(ctx)
	if err != nil {
		return nil, report, err
	}
	report.Event = event
	report.ImageWritten = o.writeHeaderImage(ctx, event)

	sessionCtx := preview.SessionContext(o.opts.Sessions)

	ctxOutcome := o.runner.Run(ctx, generation.Job{
		Entity:   store.SectionRaceContext,
		Template: o.prompts.MustGetPrompt(prompt.RaceContext),
		Vars:     prompt.Vars{"circuit": event.Circuit, "raceDate": event.RaceDate, "season": o.opts.Season},
		Parse:    preview.ParseText,
	})
	if !ctxOutcome.Succeeded() {
		return nil, report, fmt.Errorf("race context generation failed: %w", ctxOutcome.Err)
	}
	raceContext := ctxOutcome.Value.(string)
	o.enter(StageContextGenerated, "chars", len(raceContext))

	previews := o.generateDrivers(ctx, o.opts.Drivers, event.Circuit, o.opts.Season, raceContext, sessionCtx, report.FailedDrivers)
	o.enter(StageEntitiesGenerated, "drivers", len(previews), "failed", len(report.FailedDrivers))

	in := derivedInputs{
		event:       event,
		order:       driverNames(o.opts.Drivers),
		previews:    successful(previews),
		raceContext: raceContext,
		sessionCtx:  sessionCtx,
	}
	derived := o.generateDerived(ctx, in, o.opts.Season)
	o.enter(StageDerivedSectionsGenerated)

	doc := store.NewDocument()
	drivers, err := store.EncodeDrivers(in.order, previews)
	if err != nil {
		return nil, report, fmt.Errorf("failed to encode drivers: %w", err)
	}
	sections := []section{
		{store.SectionDrivers, drivers},
		{store.SectionTop5, derived.top5},
		{store.SectionUnderdogs, derived.underdogs},
		{store.SectionPrediction, derived.prediction},
		{store.SectionRaceContext, raceContext},
		{store.SectionMetadata, o.metadata(event, o.opts.Season)},
	}
	if derived.standings != nil {
		sections = append(sections, section{store.SectionStandings, derived.standings})
	}
	for _, s := range sections {
		if err := doc.Set(s.name, s.value); err != nil {
			return nil, report, err
		}
	}
	for name, err := range derived.failed {
		report.FailedSections[name] = err
	}

	if err := o.persist(ctx, doc); err != nil {
		return nil, report, err
	}
	o.enter(StagePersisted, "path", o.opts.OutputPath)
	return doc, report, nil
}

func (o *Orchestrator) metadata(event Event, season string) preview.Metadata {
	return preview.Metadata{
		Circuit:     event.Circuit,
		Date:        event.RaceDate,
		Season:      season,
		GPName:      event.GPName,
		RunID:       o.newID(),
		GeneratedAt: o.now().UTC().Format(time.RFC3339),
	}
}

func (o *Orchestrator) persist(ctx context.Context, doc *store.Document) error {
	// Units fail fast once ctx is done; their placeholders must not replace a good file.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled, %s left untouched: %w", o.opts.OutputPath, err)
	}
	if err := store.Save(doc, o.opts.OutputPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", o.opts.OutputPath, err)
	}
	if o.archive != nil {
		if err := o.archive.SaveRun(ctx, doc); err != nil {
			o.log.Warn("archive failed", "error", err)
		}
	}
	return nil
}

// generateDrivers fans out one job per driver. Failed drivers get an error
// placeholder and are recorded in failed.
func (o *Orchestrator) generateDrivers(ctx context.Context, drivers []preview.Driver, circuit, season, raceContext, sessionCtx string, failed map[string]error) map[string]preview.Preview {
	tmpl := o.prompts.MustGetPrompt(prompt.DriverPreview)
	base := prompt.Vars{
		"circuit":        circuit,
		"season":         season,
		"raceContext":    raceContext,
		"sessionContext": sessionCtx,
	}

	jobs := make([]generation.Job, 0, len(drivers))
	for _, d := range drivers {
		jobs = append(jobs, generation.Job{
			Entity:   d.Name,
			Template: tmpl,
			Vars: base.With("driverName", d.Name).
				With("driverNumber", d.Number).
				With("team", d.Team),
			Parse:   preview.ParsePreview,
			Missing: preview.MissingPreviewFields,
		})
	}

	outcomes := RunBatch(ctx, o.runner, jobs, o.opts.Concurrency)
	previews := make(map[string]preview.Preview, len(drivers))
	for _, d := range drivers {
		out := outcomes[d.Name]
		if out.Succeeded() {
			previews[d.Name] = out.Value.(preview.Preview)
			continue
		}
		failed[d.Name] = out.Err
		previews[d.Name] = preview.ErrorPreview(out.Err)
	}
	return previews
}

type section struct {
	name  string
	value any
}

type derivedInputs struct {
	event       Event
	order       []string
	previews    map[string]preview.Preview
	raceContext string
	sessionCtx  string
}

type derivedSections struct {
	top5       []preview.TopPick
	underdogs  []preview.Underdog
	prediction string
	standings  *standings.Standings
	failed     map[string]error
}

// derivedJobs builds the jobs for the sections that read the driver
// previews.
func (o *Orchestrator) derivedJobs(in derivedInputs) map[string]generation.Job {
	summary := preview.SummaryDigest(in.order, in.previews)
	shared := prompt.Vars{
		"sessionContext": in.sessionCtx,
		"raceContext":    in.raceContext,
	}
	return map[string]generation.Job{
		store.SectionTop5: {
			Entity:   store.SectionTop5,
			Template: o.prompts.MustGetPrompt(prompt.TopFive),
			Vars:     shared.With("driverPreviews", summary),
			Parse:    preview.ParseTopPicks,
		},
		store.SectionUnderdogs: {
			Entity:   store.SectionUnderdogs,
			Template: o.prompts.MustGetPrompt(prompt.Underdogs),
			Vars:     shared.With("driverPreviews", summary),
			Parse:    preview.ParseUnderdogs,
		},
		store.SectionPrediction: {
			Entity:   store.SectionPrediction,
			Template: o.prompts.MustGetPrompt(prompt.Prediction),
			Vars: shared.With("driverPreviews", preview.FullDigest(in.order, in.previews)).
				With("circuit", in.event.Circuit).
				With("raceDate", in.event.RaceDate),
			Parse: preview.ParseText,
		},
	}
}

// generateDerived runs top-5, underdogs and prediction together, with the
// standings fetch alongside them.
func (o *Orchestrator) generateDerived(ctx context.Context, in derivedInputs, season string) derivedSections {
	out := derivedSections{
		top5:      []preview.TopPick{},
		underdogs: []preview.Underdog{},
		failed:    map[string]error{},
	}
	jobs := o.derivedJobs(in)
	list := []generation.Job{jobs[store.SectionTop5], jobs[store.SectionUnderdogs], jobs[store.SectionPrediction]}

	var outcomes map[string]generation.Outcome
	var standingsErr error
	g := new(errgroup.Group)
	g.Go(func() error {
		outcomes = RunBatch(ctx, o.runner, list, 0)
		return nil
	})
	if o.standings != nil {
		g.Go(func() error {
			out.standings, standingsErr = o.standings.Fetch(ctx, season)
			return nil // Don't fail the group
		})
	}
	_ = g.Wait()

	if oc := outcomes[store.SectionTop5]; oc.Succeeded() {
		out.top5 = oc.Value.([]preview.TopPick)
	} else {
		out.failed[store.SectionTop5] = oc.Err
	}
	if oc := outcomes[store.SectionUnderdogs]; oc.Succeeded() {
		out.underdogs = oc.Value.([]preview.Underdog)
	} else {
		out.failed[store.SectionUnderdogs] = oc.Err
	}
	if oc := outcomes[store.SectionPrediction]; oc.Succeeded() {
		out.prediction = oc.Value.(string)
	} else {
		out.failed[store.SectionPrediction] = oc.Err
		out.prediction = preview.ErrorSection(oc.Err)
	}
	if standingsErr != nil {
		out.failed[store.SectionStandings] = standingsErr
		out.standings = nil
		o.log.Warn("standings unavailable", "error", standingsErr)
	}
	for name, err := range out.failed {
		if name != store.SectionStandings {
			o.log.Warn("section degraded", "section", name, "error", err)
		}
	}
	return out
}

func driverNames(drivers []preview.Driver) []string {
	names := make([]string, len(drivers))
	for i, d := range drivers {
		names[i] = d.Name
	}
	return names
}

// successful drops error placeholders, so derived prompts only see real
// previews.
func successful(previews map[string]preview.Preview) map[string]preview.Preview {
	out := make(map[string]preview.Preview, len(previews))
	for name, p := range previews {
		if !p.Failed() {
			out[name] = p
		}
	}
	return out
}
