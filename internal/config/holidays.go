package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lessonplanner/internal/calendar"
	"lessonplanner/internal/schedule"
)

// HolidayConfig is one holiday or holiday range.
type HolidayConfig struct {
	Date  string `yaml:"date"`            // "2026-01-01"
	Until string `yaml:"until,omitempty"` // inclusive end of a range
	Name  string `yaml:"name"`
}

// HolidaysConfig is the root of holidays.yaml.
type HolidaysConfig struct {
	Holidays []HolidayConfig `yaml:"holidays"`
}

// LoadHolidays loads and validates a holidays file.
func LoadHolidays(path string) (*HolidaysConfig, error) {
	if path == "" {
		path = "configs/holidays.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holidays config: %w", err)
	}

	var cfg HolidaysConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse holidays config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate holidays config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *HolidaysConfig) Validate() error {
	for i, h := range c.Holidays {
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("holiday[%d]: name is required", i)
		}
		if h.Date == "" {
			return fmt.Errorf("holiday[%d]: date is required", i)
		}
		start, err := schedule.ParseDate(h.Date)
		if err != nil {
			return fmt.Errorf("holiday[%d]: %w", i, err)
		}
		if h.Until == "" {
			continue
		}
		end, err := schedule.ParseDate(h.Until)
		if err != nil {
			return fmt.Errorf("holiday[%d]: %w", i, err)
		}
		if end.Before(start) {
			return fmt.Errorf("holiday[%d]: until %s is before date %s", i, h.Until, h.Date)
		}
	}
	return nil
}

// Calendar converts the validated config for the calendar grid.
func (c *HolidaysConfig) Calendar() []calendar.Holiday {
	out := make([]calendar.Holiday, 0, len(c.Holidays))
	for _, h := range c.Holidays {
		start, _ := schedule.ParseDate(h.Date)
		hol := calendar.Holiday{Name: h.Name, Start: start}
		if h.Until != "" {
			hol.End, _ = schedule.ParseDate(h.Until)
		}
		out = append(out, hol)
	}
	return out
}
