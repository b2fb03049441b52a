package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"studiobook/internal/model"
)

// HoursConfig is one operating-hours entry for a room. DayOfWeek is only
// read in variable mode and uses 0=Sunday.
type HoursConfig struct {
	DayOfWeek int    `yaml:"day_of_week"`
	OpenTime  string `yaml:"open_time"`  // "09:00"
	CloseTime string `yaml:"close_time"` // "18:00"
	IsClosed  bool   `yaml:"is_closed,omitempty"`
}

// RoomConfig declares a bookable room and its operating hours.
type RoomConfig struct {
	ID       int64         `yaml:"id"`
	StudioID int64         `yaml:"studio_id"`
	Name     string        `yaml:"name"`
	Timezone string        `yaml:"timezone"`
	IsActive bool          `yaml:"is_active"`
	Mode     string        `yaml:"mode"` // always_open, fixed_daily, variable
	Hours    []HoursConfig `yaml:"hours,omitempty"`
}

// StudiosConfig is the root of studios.yaml.
type StudiosConfig struct {
	Rooms []RoomConfig `yaml:"rooms"`
}

// LoadStudiosConfig loads and validates the room seed file.
func LoadStudiosConfig(path string) (*StudiosConfig, error) {
	if path == "" {
		path = "configs/studios.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read studios config: %w", err)
	}

	var cfg StudiosConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse studios config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate studios config: %w", err)
	}
	return &cfg, nil
}

// Validate checks room declarations for the mistakes that would otherwise
// silently resolve to closed days.
func (c *StudiosConfig) Validate() error {
	seen := make(map[int64]bool)
	for _, room := range c.Rooms {
		if room.ID <= 0 {
			return fmt.Errorf("room %q: id must be positive", room.Name)
		}
		if seen[room.ID] {
			return fmt.Errorf("duplicate room id %d", room.ID)
		}
		seen[room.ID] = true

		if _, err := time.LoadLocation(room.Timezone); err != nil {
			return fmt.Errorf("room %d: invalid timezone %q", room.ID, room.Timezone)
		}

		switch model.HoursMode(room.Mode) {
		case model.ModeAlwaysOpen:
			// No hours needed.
		case model.ModeFixedDaily:
			if len(room.Hours) != 1 {
				return fmt.Errorf("room %d: fixed_daily requires exactly one hours entry", room.ID)
			}
		case model.ModeVariable:
			if len(room.Hours) == 0 {
				return fmt.Errorf("room %d: variable mode requires hours entries", room.ID)
			}
			days := make(map[int]bool)
			for _, h := range room.Hours {
				if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
					return fmt.Errorf("room %d: day_of_week %d out of range", room.ID, h.DayOfWeek)
				}
				if days[h.DayOfWeek] {
					return fmt.Errorf("room %d: duplicate day_of_week %d", room.ID, h.DayOfWeek)
				}
				days[h.DayOfWeek] = true
			}
		default:
			return fmt.Errorf("room %d: unknown mode %q", room.ID, room.Mode)
		}

		for _, h := range room.Hours {
			if h.IsClosed {
				continue
			}
			if _, err := model.ParseClock(h.OpenTime); err != nil {
				return fmt.Errorf("room %d: %w", room.ID, err)
			}
			if _, err := model.ParseClock(h.CloseTime); err != nil {
				return fmt.Errorf("room %d: %w", room.ID, err)
			}
		}
	}
	return nil
}

// OperatingHours converts a room declaration into model records.
func (r *RoomConfig) OperatingHours() []model.OperatingHour {
	mode := model.HoursMode(r.Mode)
	if mode == model.ModeAlwaysOpen {
		return []model.OperatingHour{{RoomID: r.ID, Mode: mode}}
	}

	records := make([]model.OperatingHour, 0, len(r.Hours))
	for _, h := range r.Hours {
		records = append(records, model.OperatingHour{
			RoomID:    r.ID,
			Mode:      mode,
			DayOfWeek: h.DayOfWeek,
			OpenTime:  h.OpenTime,
			CloseTime: h.CloseTime,
			IsClosed:  h.IsClosed,
		})
	}
	return records
}

// Room converts a room declaration into the model type.
func (r *RoomConfig) Room() model.Room {
	return model.Room{
		ID:       r.ID,
		StudioID: r.StudioID,
		Name:     r.Name,
		Timezone: r.Timezone,
		IsActive: r.IsActive,
	}
}
