// Package controller owns the state of one cascading location form.
//
// Every selection clears the levels below it and fetches the options of the
// next level. Each fetch is tagged with the form's version at issue time; a
// response whose tag no longer matches is discarded, so a slow answer for a
// superseded selection can never repopulate a list.
package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"location_form/gateway"
	"location_form/logger"
	"location_form/metrics"
	"location_form/models"
	"location_form/validation"
)

var (
	ErrUnknownLevel            = errors.New("unknown location level")
	ErrNotAnOption             = errors.New("value is not one of the current options")
	ErrAncestorUnset           = errors.New("a parent level is not selected")
	ErrStaleResponse           = errors.New("response superseded by a newer selection")
	ErrAwaitingAcknowledgement = errors.New("previous submission has not been acknowledged")
	ErrNothingToAcknowledge    = errors.New("no submission is awaiting acknowledgement")
)

const (
	phaseEditing    = "editing"
	phaseConfirming = "confirming"

	eventSubmit      = "submit"
	eventAcknowledge = "acknowledge"
)

const levelCount = 4

// Failure describes the most recent fetch that did not succeed.
type Failure struct {
	Level   models.Level `json:"-"`
	Name    string       `json:"level"`
	Message string       `json:"message"`
}

// Snapshot is a copy of everything the presentation layer shows.
type Snapshot struct {
	CountryOptions  []string         `json:"country_options"`
	StateOptions    []string         `json:"state_options"`
	DistrictOptions []string         `json:"district_options"`
	CityOptions     []string         `json:"city_options"`
	Selection       models.Selection `json:"selection"`
	Loading         bool             `json:"loading"`
	Submitted       bool             `json:"submitted"`
	FormGeneration  uint64           `json:"form_generation"`
	Failure         *Failure         `json:"failure,omitempty"`
}

// Options returns the option list shown for level.
func (s Snapshot) Options(level models.Level) []string {
	switch level {
	case models.LevelCountry:
		return s.CountryOptions
	case models.LevelState:
		return s.StateOptions
	case models.LevelDistrict:
		return s.DistrictOptions
	case models.LevelCity:
		return s.CityOptions
	}
	return nil
}

// fetchFunc lists the options of one level under the ancestors in sel.
type fetchFunc func(ctx context.Context, gw gateway.Gateway, sel models.Selection) ([]string, error)

var fetchers = map[models.Level]fetchFunc{
	models.LevelCountry: func(ctx context.Context, gw gateway.Gateway, _ models.Selection) ([]string, error) {
		countries, err := gw.ListCountries(ctx)
		if err != nil {
			return nil, err
		}
		labels := make([]string, 0, len(countries))
		for _, c := range countries {
			labels = append(labels, c.Name)
		}
		return labels, nil
	},
	models.LevelState: func(ctx context.Context, gw gateway.Gateway, sel models.Selection) ([]string, error) {
		states, err := gw.ListStates(ctx, sel.Country)
		if err != nil {
			return nil, err
		}
		labels := make([]string, 0, len(states))
		for _, s := range states {
			labels = append(labels, s.Name)
		}
		return labels, nil
	},
	models.LevelDistrict: func(ctx context.Context, gw gateway.Gateway, sel models.Selection) ([]string, error) {
		return gw.ListDistricts(ctx, sel.Country, sel.State)
	},
	models.LevelCity: func(ctx context.Context, gw gateway.Gateway, sel models.Selection) ([]string, error) {
		return gw.ListCities(ctx, sel.Country, sel.State, sel.District)
	},
}

// Controller is safe for concurrent use. Gateway calls run without holding
// the state lock.
type Controller struct {
	gw        gateway.Gateway
	validator validation.Validator
	log       *zap.SugaredLogger
	now       func() time.Time
	onConfirm func(models.Submission)

	mu         sync.Mutex
	options    [levelCount][]string
	selection  models.Selection
	inflight   int
	version    uint64
	generation uint64
	failure    *Failure
	phase      *fsm.FSM
}

type Option func(*Controller)

func WithValidator(v validation.Validator) Option {
	return func(c *Controller) {
		c.validator = v
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithConfirmationHook is called once for every accepted submission.
func WithConfirmationHook(fn func(models.Submission)) Option {
	return func(c *Controller) {
		c.onConfirm = fn
	}
}

func New(gw gateway.Gateway, opts ...Option) *Controller {
	c := &Controller{
		gw:        gw,
		validator: validation.NewRequiredFields(),
		log:       logger.For(logger.ComponentController),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	log := c.log
	c.phase = fsm.NewFSM(
		phaseEditing,
		fsm.Events{
			{Name: eventSubmit, Src: []string{phaseEditing}, Dst: phaseConfirming},
			{Name: eventAcknowledge, Src: []string{phaseConfirming}, Dst: phaseEditing},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debugw("Form phase changed", "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
	return c
}

// Initialize loads the country list. Any existing selection is discarded.
func (c *Controller) Initialize(ctx context.Context) error {
	return c.Refresh(ctx, models.LevelCountry)
}

// Refresh fetches the options of level again under the current ancestors.
// The selection at level and below is cleared first.
func (c *Controller) Refresh(ctx context.Context, level models.Level) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownLevel, int(level))
	}

	c.mu.Lock()
	for _, l := range models.Levels {
		if l < level && c.selection.Get(l) == "" {
			c.mu.Unlock()
			return fmt.Errorf("refresh %s: %w (%s)", level, ErrAncestorUnset, l)
		}
	}
	c.clearFrom(level)
	tag, sel := c.beginFetch()
	c.mu.Unlock()

	return c.fetch(ctx, level, tag, sel)
}

// Select assigns value at level, clears everything below it and, unless
// level is terminal, fetches the options of the next level. An empty value
// unsets level without fetching.
func (c *Controller) Select(ctx context.Context, level models.Level, value string) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownLevel, int(level))
	}
	value = strings.TrimSpace(value)

	c.mu.Lock()
	if value != "" && !slices.Contains(c.options[level], value) {
		c.mu.Unlock()
		return fmt.Errorf("select %s %q: %w", level, value, ErrNotAnOption)
	}

	c.selection.Set(level, value)
	next, hasNext := level.Next()
	if !hasNext {
		c.mu.Unlock()
		return nil
	}
	c.clearFrom(next)

	if value == "" {
		c.version++
		c.mu.Unlock()
		return nil
	}

	tag, sel := c.beginFetch()
	c.mu.Unlock()

	return c.fetch(ctx, next, tag, sel)
}

func (c *Controller) SelectCountry(ctx context.Context, value string) error {
	return c.Select(ctx, models.LevelCountry, value)
}

func (c *Controller) SelectState(ctx context.Context, value string) error {
	return c.Select(ctx, models.LevelState, value)
}

func (c *Controller) SelectDistrict(ctx context.Context, value string) error {
	return c.Select(ctx, models.LevelDistrict, value)
}

func (c *Controller) SelectCity(ctx context.Context, value string) error {
	return c.Select(ctx, models.LevelCity, value)
}

// Submit validates the current selection. On success it raises the
// confirmation, resets the form, bumps the form generation and loads the
// countries again. A failed reload does not fail the submission; it shows up
// in the snapshot's Failure.
func (c *Controller) Submit(ctx context.Context) (models.Submission, error) {
	c.mu.Lock()
	if c.phase.Is(phaseConfirming) {
		c.mu.Unlock()
		return models.Submission{}, ErrAwaitingAcknowledgement
	}

	sel := c.selection
	if err := c.validator.Validate(sel); err != nil {
		c.mu.Unlock()
		metrics.IncSubmission(metrics.OutcomeFailure)
		return models.Submission{}, err
	}

	if err := c.phase.Event(ctx, eventSubmit); err != nil {
		c.mu.Unlock()
		return models.Submission{}, fmt.Errorf("raise confirmation: %w", err)
	}

	submission := models.Submission{Selection: sel, SubmittedAt: c.now()}
	c.selection = models.Selection{}
	c.options = [levelCount][]string{}
	c.generation++
	c.version++
	c.failure = nil
	generation := c.generation
	c.mu.Unlock()

	metrics.IncSubmission(metrics.OutcomeSuccess)
	c.log.Infow("Form submitted",
		"country", sel.Country,
		"state", sel.State,
		"district", sel.District,
		"city", sel.City,
		"generation", generation,
	)
	if c.onConfirm != nil {
		c.onConfirm(submission)
	}

	if err := c.Initialize(ctx); err != nil && !errors.Is(err, ErrStaleResponse) {
		c.log.Warnw("Could not reload countries after submission", "error", err)
	}
	return submission, nil
}

// Acknowledge dismisses the submission confirmation.
func (c *Controller) Acknowledge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.phase.Can(eventAcknowledge) {
		return ErrNothingToAcknowledge
	}
	if err := c.phase.Event(ctx, eventAcknowledge); err != nil {
		return fmt.Errorf("dismiss confirmation: %w", err)
	}
	return nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		CountryOptions:  clone(c.options[models.LevelCountry]),
		StateOptions:    clone(c.options[models.LevelState]),
		DistrictOptions: clone(c.options[models.LevelDistrict]),
		CityOptions:     clone(c.options[models.LevelCity]),
		Selection:       c.selection,
		Loading:         c.inflight > 0,
		Submitted:       c.phase.Is(phaseConfirming),
		FormGeneration:  c.generation,
	}
	if c.failure != nil {
		f := *c.failure
		s.Failure = &f
	}
	return s
}

// clearFrom unsets the selection and empties the options at level and every
// level below it. Callers hold c.mu.
func (c *Controller) clearFrom(level models.Level) {
	c.selection.ClearFrom(level)
	for _, l := range models.Levels {
		if l >= level {
			c.options[l] = nil
		}
	}
}

// beginFetch stamps a new fetch and raises loading. Callers hold c.mu.
func (c *Controller) beginFetch() (uint64, models.Selection) {
	c.version++
	c.inflight++
	c.failure = nil
	return c.version, c.selection
}

func (c *Controller) fetch(ctx context.Context, level models.Level, tag uint64, sel models.Selection) error {
	labels, err := fetchers[level](ctx, c.gw, sel)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--

	if tag != c.version {
		metrics.IncStaleResponse(level.String())
		c.log.Debugw("Discarding superseded options", "level", level.String(), "tag", tag, "version", c.version, "error", err)
		return fmt.Errorf("list %s options: %w", level, ErrStaleResponse)
	}
	if err != nil {
		c.failure = &Failure{Level: level, Name: level.String(), Message: err.Error()}
		c.log.Errorw("Failed to fetch options", "level", level.String(), "error", err)
		return fmt.Errorf("list %s options: %w", level, err)
	}

	c.options[level] = normalize(labels)
	return nil
}

// normalize trims every label and drops blank ones. Select compares trimmed
// values against these.
func normalize(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
