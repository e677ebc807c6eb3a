package models

import (
	"fmt"
	"strings"
	"time"
)

// Level is a rank in the location dependency chain. Each level depends on
// every level above it.
type Level int

const (
	LevelCountry Level = iota
	LevelState
	LevelDistrict
	LevelCity
)

// Levels lists every level from the top of the chain down.
var Levels = []Level{LevelCountry, LevelState, LevelDistrict, LevelCity}

var levelNames = map[Level]string{
	LevelCountry:  "country",
	LevelState:    "state",
	LevelDistrict: "district",
	LevelCity:     "city",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool {
	return l >= LevelCountry && l <= LevelCity
}

// Terminal reports whether nothing depends on l.
func (l Level) Terminal() bool {
	return l == LevelCity
}

// Next returns the level directly below l. ok is false for the terminal level.
func (l Level) Next() (next Level, ok bool) {
	if !l.Valid() || l.Terminal() {
		return l, false
	}
	return l + 1, true
}

// ParseLevel accepts the lower-case level names used on the wire.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for level, n := range levelNames {
		if n == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown location level %q", s)
}

type Position struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"long"`
}

type Country struct {
	Name     string   `json:"name"`
	ISO2     string   `json:"iso2,omitempty"`
	Position Position `json:"position"`
}

type State struct {
	Name      string `json:"name"`
	StateCode string `json:"state_code,omitempty"`
}

// Selection holds the chosen label for every level. An empty string means
// the level is unset.
type Selection struct {
	Country  string `json:"country" validate:"required"`
	State    string `json:"state" validate:"required"`
	District string `json:"district" validate:"required"`
	City     string `json:"city" validate:"required"`
}

// Get returns the value selected at level.
func (s Selection) Get(level Level) string {
	switch level {
	case LevelCountry:
		return s.Country
	case LevelState:
		return s.State
	case LevelDistrict:
		return s.District
	case LevelCity:
		return s.City
	}
	return ""
}

// Set assigns value at level. Unknown levels are ignored.
func (s *Selection) Set(level Level, value string) {
	switch level {
	case LevelCountry:
		s.Country = value
	case LevelState:
		s.State = value
	case LevelDistrict:
		s.District = value
	case LevelCity:
		s.City = value
	}
}

// ClearFrom unsets level and every level below it.
func (s *Selection) ClearFrom(level Level) {
	for _, l := range Levels {
		if l >= level {
			s.Set(l, "")
		}
	}
}

// Submission is the finalized selection at the moment it was accepted.
type Submission struct {
	Selection
	SubmittedAt time.Time `json:"submitted_at"`
}
