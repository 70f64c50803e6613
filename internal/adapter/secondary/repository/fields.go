package repository

import (
	"fmt"
	"strconv"
	"time"

	"announce-helper/internal/domain"
)

type field struct {
	key string
	get func(domain.Settings) any
	set func(*domain.Settings, string) error
}

// fields lists every stored setting in display order. Keys are lower case
// because viper folds them on write.
var fields = []field{
	{"volume", func(s domain.Settings) any { return s.Volume }, setInt(func(s *domain.Settings, v int) { s.Volume = v })},
	{"output_device", func(s domain.Settings) any { return s.OutputDevice }, setString(func(s *domain.Settings, v string) { s.OutputDevice = v })},
	{"command_path", func(s domain.Settings) any { return s.CommandPath }, setString(func(s *domain.Settings, v string) { s.CommandPath = v })},
	{"command_args", func(s domain.Settings) any { return s.CommandArgs }, setString(func(s *domain.Settings, v string) { s.CommandArgs = v })},
	{"log_path", func(s domain.Settings) any { return s.LogPath }, setString(func(s *domain.Settings, v string) { s.LogPath = v })},
	{"helper_path", func(s domain.Settings) any { return s.HelperPath }, setString(func(s *domain.Settings, v string) { s.HelperPath = v })},
	{"agent_label", func(s domain.Settings) any { return s.AgentLabel }, setString(func(s *domain.Settings, v string) { s.AgentLabel = v })},
	{"notify", func(s domain.Settings) any { return s.Notify }, setBool(func(s *domain.Settings, v bool) { s.Notify = v })},
	{"tuning.volume_tolerance", func(s domain.Settings) any { return s.Tuning.VolumeTolerance }, setInt(func(s *domain.Settings, v int) { s.Tuning.VolumeTolerance = v })},
	{"tuning.volume_settle", func(s domain.Settings) any { return s.Tuning.VolumeSettle.String() }, setDuration(func(s *domain.Settings, v time.Duration) { s.Tuning.VolumeSettle = v })},
	{"tuning.endpoint_settle", func(s domain.Settings) any { return s.Tuning.EndpointSettle.String() }, setDuration(func(s *domain.Settings, v time.Duration) { s.Tuning.EndpointSettle = v })},
	{"tuning.post_switch_settle", func(s domain.Settings) any { return s.Tuning.PostSwitchSettle.String() }, setDuration(func(s *domain.Settings, v time.Duration) { s.Tuning.PostSwitchSettle = v })},
}

func setString(fn func(*domain.Settings, string)) func(*domain.Settings, string) error {
	return func(s *domain.Settings, raw string) error {
		fn(s, raw)
		return nil
	}
}

func setInt(fn func(*domain.Settings, int)) func(*domain.Settings, string) error {
	return func(s *domain.Settings, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("not an integer: %q", raw)
		}
		fn(s, v)
		return nil
	}
}

func setBool(fn func(*domain.Settings, bool)) func(*domain.Settings, string) error {
	return func(s *domain.Settings, raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", raw)
		}
		fn(s, v)
		return nil
	}
}

func setDuration(fn func(*domain.Settings, time.Duration)) func(*domain.Settings, string) error {
	return func(s *domain.Settings, raw string) error {
		v, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("not a duration: %q", raw)
		}
		fn(s, v)
		return nil
	}
}

// Keys returns the setting keys in display order.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

// Get renders one setting as text.
func Get(s domain.Settings, key string) (string, error) {
	f, err := lookup(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(f.get(s)), nil
}

// Set parses value into the setting named key and validates the result.
func Set(s domain.Settings, key, value string) (domain.Settings, error) {
	f, err := lookup(key)
	if err != nil {
		return s, err
	}
	next := s
	if err := f.set(&next, value); err != nil {
		return s, fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

func lookup(key string) (field, error) {
	for _, f := range fields {
		if f.key == key {
			return f, nil
		}
	}
	return field{}, fmt.Errorf("unknown setting %q", key)
}
