// Package events holds the bonus-event calendar: dated windows during which
// placements earn multiplied points and the palette may be restricted for
// display purposes. The calendar is loaded once at start-up from a YAML file.
package events

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Event is one calendar window.
type Event struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Start       time.Time `yaml:"start" json:"start"`
	End         time.Time `yaml:"end" json:"end"`
	Palette     []string  `yaml:"palette,omitempty" json:"palette,omitempty"`
	BonusPoints int       `yaml:"bonus_points" json:"bonusPoints"`
}

// Calendar answers "which event is active now". Safe for concurrent use
// after Load; the event list is immutable.
type Calendar struct {
	events []Event
}

type calendarFile struct {
	Events []Event `yaml:"events"`
}

// Load reads a calendar file. An empty path yields an empty calendar.
func Load(path string) (*Calendar, error) {
	if path == "" {
		return &Calendar{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events config: %w", err)
	}
	var f calendarFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse events config: %w", err)
	}
	for i, e := range f.Events {
		if e.ID == "" {
			return nil, fmt.Errorf("events config: event %d has no id", i)
		}
		if !e.End.After(e.Start) {
			return nil, fmt.Errorf("events config: event %q ends before it starts", e.ID)
		}
		if e.BonusPoints < 1 {
			f.Events[i].BonusPoints = 1
		}
	}
	return &Calendar{events: f.Events}, nil
}

// Current returns the event covering now, or nil.
func (c *Calendar) Current(now time.Time) *Event {
	for i := range c.events {
		e := &c.events[i]
		if !now.Before(e.Start) && !now.After(e.End) {
			return e
		}
	}
	return nil
}

// Multiplier returns the active bonus multiplier, 1 outside any event.
func (c *Calendar) Multiplier(now time.Time) int {
	if e := c.Current(now); e != nil {
		return e.BonusPoints
	}
	return 1
}
