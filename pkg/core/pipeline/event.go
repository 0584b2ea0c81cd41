package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"race_preview/pkg/core/generation"
	"race_preview/pkg/core/prompt"
	"race_preview/pkg/core/utils"
)

// Event identifies the Grand Prix a run is for.
type Event struct {
	Circuit  string `json:"circuit"`
	RaceDate string `json:"race_date"`
	GPName   string `json:"gp_name"`
}

// ErrDetectionFailed is returned when the next Grand Prix could not be
// identified.
var ErrDetectionFailed = errors.New("next grand prix detection failed")

func (o *Orchestrator) resolveEvent(ctx context.Context) (Event, error) {
	if o.opts.Circuit != "" && o.opts.RaceDate != "" {
		return Event{Circuit: o.opts.Circuit, RaceDate: o.opts.RaceDate}, nil
	}
	o.log.Info("detecting next grand prix")
	event, err := o.DetectGP(ctx)
	if err != nil {
		return Event{}, err
	}
	o.log.Info("grand prix detected", "gp", event.GPName, "circuit", event.Circuit, "date", event.RaceDate)
	return event, nil
}

// DetectGP asks the service for the next race and parses the JSON object
// in its reply.
func (o *Orchestrator) DetectGP(ctx context.Context) (Event, error) {
	out := o.runner.Run(ctx, generation.Job{
		Entity:   "detect_gp",
		Template: o.prompts.MustGetPrompt(prompt.DetectGP),
		Vars:     prompt.Vars{"today": o.now().Format("2006-01-02")},
		Parse:    parseEvent,
	})
	if !out.Succeeded() {
		return Event{}, fmt.Errorf("%w: %v", ErrDetectionFailed, out.Err)
	}
	event, ok := out.Value.(Event)
	if !ok || event.Circuit == "" || event.RaceDate == "" {
		return Event{}, fmt.Errorf("%w: reply had no circuit or date: %.200q", ErrDetectionFailed, out.Raw)
	}
	return event, nil
}

func parseEvent(cleaned string) any {
	var e Event
	if _, err := utils.SmartParse(utils.ExtractJSONObject(cleaned), &e); err != nil {
		return Event{}
	}
	e.Circuit = strings.TrimSpace(e.Circuit)
	e.RaceDate = strings.TrimSpace(e.RaceDate)
	e.GPName = strings.TrimSpace(e.GPName)
	return e
}

// writeHeaderImage generates the banner when a GP name is known. Any
// failure is logged and ignored.
func (o *Orchestrator) writeHeaderImage(ctx context.Context, event Event) bool {
	if o.images == nil || event.GPName == "" || o.opts.ImagePath == "" {
		return false
	}
	text, err := prompt.Render(o.prompts.MustGetPrompt(prompt.HeaderImage), prompt.Vars{
		"gpName":  event.GPName,
		"circuit": event.Circuit,
	})
	if err != nil {
		o.log.Warn("header image prompt failed", "error", err)
		return false
	}
	img, err := o.images.GenerateImage(ctx, text)
	if err != nil {
		o.log.Warn("header image generation failed", "error", err)
		return false
	}
	if err := os.WriteFile(o.opts.ImagePath, img, 0o644); err != nil {
		o.log.Warn("header image write failed", "path", o.opts.ImagePath, "error", err)
		return false
	}
	o.log.Info("header image written", "path", o.opts.ImagePath, "bytes", len(img))
	return true
}
