package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"announce-helper/internal/domain"
)

// SettingsKey is the fixed key the settings live under.
const SettingsKey = "announcehelper"

// legacyDefaultDevice is what older settings stored for "system default".
const legacyDefaultDevice = "デフォルト"

// SettingsRepository implements domain.SettingsRepository on a JSON file
// read and written through viper. Environment variables prefixed with
// ANNOUNCE_HELPER_ override stored values on load.
type SettingsRepository struct {
	path string
	mu   sync.Mutex
}

// NewSettingsRepository creates the directory of path if needed.
func NewSettingsRepository(path string) (*SettingsRepository, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	return &SettingsRepository{path: path}, nil
}

var _ domain.SettingsRepository = (*SettingsRepository)(nil)

// Path returns the settings file path.
func (r *SettingsRepository) Path() string { return r.path }

func (r *SettingsRepository) newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(r.path)
	v.SetConfigType("json")
	v.SetEnvPrefix("ANNOUNCE_HELPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(strings.ToUpper(SettingsKey)+".", "", ".", "_"))
	v.AutomaticEnv()

	def := domain.DefaultSettings()
	for _, f := range fields {
		v.SetDefault(SettingsKey+"."+f.key, f.get(def))
	}
	return v
}

// Load reads the settings. A missing file yields the defaults.
func (r *SettingsRepository) Load() (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return domain.Settings{}, fmt.Errorf("read settings: %w", err)
		}
	}

	s := domain.DefaultSettings()
	for _, f := range fields {
		raw := v.GetString(SettingsKey + "." + f.key)
		if err := f.set(&s, raw); err != nil {
			return domain.Settings{}, fmt.Errorf("settings %s: %w", f.key, err)
		}
	}
	if s.OutputDevice == legacyDefaultDevice {
		s.OutputDevice = ""
	}
	return s, nil
}

// Save writes all settings atomically.
func (r *SettingsRepository) Save(s domain.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	v := viper.New()
	v.SetConfigType("json")
	for _, f := range fields {
		v.Set(SettingsKey+"."+f.key, f.get(s))
	}

	ext := filepath.Ext(r.path)
	tmp := strings.TrimSuffix(r.path, ext) + ".tmp" + ext
	if err := v.WriteConfigAs(tmp); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}

// DefaultPath returns the default settings file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "announce-helper", "settings.json")
}
