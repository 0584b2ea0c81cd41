package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"race_preview/pkg/core/preview"
	"race_preview/pkg/core/store"
)

// Regeneration modes.
const (
	OnlyPrediction = "prediction"
	OnlyTop5       = "top5"
	OnlyUnderdogs  = "underdogs"
	OnlyStandings  = "standings"
	OnlyDrivers    = "drivers"
	OnlyDriver     = "driver"
)

// Modes lists the accepted regeneration modes.
func Modes() []string {
	return []string{OnlyPrediction, OnlyTop5, OnlyUnderdogs, OnlyStandings, OnlyDrivers, OnlyDriver}
}

var sectionOf = map[string]string{
	OnlyPrediction: store.SectionPrediction,
	OnlyTop5:       store.SectionTop5,
	OnlyUnderdogs:  store.SectionUnderdogs,
	OnlyStandings:  store.SectionStandings,
}

// Regenerate loads the document at OutputPath, rebuilds the part named by
// mode and writes the result. Any failure leaves the file untouched. A
// missing file is restored from the archive when one is set.
func (o *Orchestrator) Regenerate(ctx context.Context, mode, driver string) (*store.Document, error) {
	doc, err := o.loadDocument(ctx)
	if err != nil {
		return nil, err
	}

	var updated *store.Document
	switch mode {
	case OnlyDriver:
		updated, err = o.RunSingle(ctx, doc, driver)
	case OnlyDrivers:
		var failed map[string]error
		updated, failed, err = o.RunDrivers(ctx, doc)
		for name, ferr := range failed {
			o.log.Warn("driver failed", "driver", name, "error", ferr)
		}
	default:
		section, ok := sectionOf[mode]
		if !ok {
			return nil, fmt.Errorf("unknown mode %q (valid: %s)", mode, strings.Join(Modes(), ", "))
		}
		updated, err = o.RunSection(ctx, doc, section)
	}
	if err != nil {
		return nil, err
	}

	if err := o.persist(ctx, updated); err != nil {
		return nil, err
	}
	o.log.Info("document updated", "mode", mode, "path", o.opts.OutputPath)
	return updated, nil
}

func (o *Orchestrator) loadDocument(ctx context.Context) (*store.Document, error) {
	doc, err := store.Load(o.opts.OutputPath)
	if err == nil || !errors.Is(err, store.ErrNotFound) || o.archive == nil {
		return doc, err
	}
	archived, aerr := o.archive.LatestRun(ctx, o.opts.Circuit, o.opts.Season)
	if aerr != nil {
		o.log.Warn("no archived run to restore", "season", o.opts.Season, "error", aerr)
		return nil, err
	}
	o.log.Info("restored document from archive", "season", o.opts.Season)
	return archived, nil
}

// storedInputs is the shared context of a previous full run.
type storedInputs struct {
	meta        preview.Metadata
	raceContext string
}

func loadInputs(doc *store.Document, fallbackSeason string) (storedInputs, error) {
	meta, err := doc.Metadata()
	if err != nil {
		return storedInputs{}, err
	}
	if meta.Season == "" {
		meta.Season = fallbackSeason
	}
	rc, err := doc.RaceContext()
	if err != nil {
		return storedInputs{}, err
	}
	return storedInputs{meta: meta, raceContext: rc}, nil
}

// RunSingle regenerates one driver and merges only that record into doc.
func (o *Orchestrator) RunSingle(ctx context.Context, doc *store.Document, name string) (*store.Document, error) {
	var driver *preview.Driver
	for i := range o.opts.Drivers {
		if o.opts.Drivers[i].Name == name {
			driver = &o.opts.Drivers[i]
			break
		}
	}
	if driver == nil {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownDriver, name, strings.Join(driverNames(o.opts.Drivers), ", "))
	}

	in, err := loadInputs(doc, o.opts.Season)
	if err != nil {
		return nil, err
	}

	failed := map[string]error{}
	previews := o.generateDrivers(ctx, []preview.Driver{*driver}, in.meta.Circuit, in.meta.Season, in.raceContext, preview.SessionContext(o.opts.Sessions), failed)
	if err := failed[name]; err != nil {
		return nil, fmt.Errorf("failed to generate preview for %s: %w", name, err)
	}
	return store.MergeEntity(doc, name, previews[name])
}

// RunDrivers regenerates every configured driver from the stored race
// context. Failures are placeholders, as in a full run.
func (o *Orchestrator) RunDrivers(ctx context.Context, doc *store.Document) (*store.Document, map[string]error, error) {
	in, err := loadInputs(doc, o.opts.Season)
	if err != nil {
		return nil, nil, err
	}

	failed := map[string]error{}
	previews := o.generateDrivers(ctx, o.opts.Drivers, in.meta.Circuit, in.meta.Season, in.raceContext, preview.SessionContext(o.opts.Sessions), failed)
	drivers, err := store.EncodeDrivers(driverNames(o.opts.Drivers), previews)
	if err != nil {
		return nil, nil, err
	}
	updated, err := store.MergeSection(doc, store.SectionDrivers, drivers)
	return updated, failed, err
}

// RunSection rebuilds one derived section from the stored driver previews.
func (o *Orchestrator) RunSection(ctx context.Context, doc *store.Document, section string) (*store.Document, error) {
	in, err := loadInputs(doc, o.opts.Season)
	if err != nil {
		return nil, err
	}

	if section == store.SectionStandings {
		if o.standings == nil {
			return nil, errors.New("no standings source configured")
		}
		s, err := o.standings.Fetch(ctx, in.meta.Season)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch standings: %w", err)
		}
		return store.MergeSection(doc, section, s)
	}

	previews, err := doc.Drivers()
	if err != nil {
		return nil, err
	}
	order, err := doc.DriverNames()
	if err != nil {
		return nil, err
	}

	jobs := o.derivedJobs(derivedInputs{
		event:       Event{Circuit: in.meta.Circuit, RaceDate: in.meta.Date, GPName: in.meta.GPName},
		order:       order,
		previews:    successful(previews),
		raceContext: in.raceContext,
		sessionCtx:  preview.SessionContext(o.opts.Sessions),
	})
	job, ok := jobs[section]
	if !ok {
		return nil, fmt.Errorf("section %q cannot be regenerated", section)
	}

	out := o.runner.Run(ctx, job)
	if !out.Succeeded() {
		return nil, fmt.Errorf("failed to generate %s: %w", section, out.Err)
	}
	return store.MergeSection(doc, section, out.Value)
}
