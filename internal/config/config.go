package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/position-tracker/internal/keys"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the addon folder.
const FileName = "position_tracker.cfg.json"

// Tokens are the placeholders substituted into the line style.
type Tokens struct {
	X    string `json:"xParameter" mapstructure:"xParameter"`
	Y    string `json:"yParameter" mapstructure:"yParameter"`
	Z    string `json:"zParameter" mapstructure:"zParameter"`
	W    string `json:"wParameter" mapstructure:"wParameter"`
	Time string `json:"timeParameter" mapstructure:"timeParameter"`
	Name string `json:"nameParameter" mapstructure:"nameParameter"`
}

// TrackerConfig holds the capture settings. It is built once and never mutated.
type TrackerConfig struct {
	UseMenu  bool
	SaveKey  keys.Code
	FilePath string
	Style    string
	Tokens   Tokens
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// setDefaults is split from Load so a missing file still leaves usable values.
func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./position_tracker_logs")

	viper.SetDefault("useMenu", true)
	viper.SetDefault("saveKey", "F7")
	viper.SetDefault("filePath", "./PositionTracker")
	viper.SetDefault("style", "{X}, {Y}, {Z}, {W} // {N} ({T})")
	viper.SetDefault("xParameter", "{X}")
	viper.SetDefault("yParameter", "{Y}")
	viper.SetDefault("zParameter", "{Z}")
	viper.SetDefault("wParameter", "{W}")
	viper.SetDefault("timeParameter", "{T}")
	viper.SetDefault("nameParameter", "{N}")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "position-tracker")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Defaults returns the capture settings used when no valid file is present.
func Defaults() TrackerConfig {
	return TrackerConfig{
		UseMenu:  true,
		SaveKey:  keys.F7,
		FilePath: "./PositionTracker",
		Style:    "{X}, {Y}, {Z}, {W} // {N} ({T})",
		Tokens: Tokens{
			X: "{X}", Y: "{Y}", Z: "{Z}", W: "{W}", Time: "{T}", Name: "{N}",
		},
	}
}

// UseDefaults installs the default values without reading a file.
func UseDefaults() {
	setDefaults()
}

// GetTrackerConfig builds and validates the capture settings.
func GetTrackerConfig() (TrackerConfig, error) {
	saveKey, err := keys.Parse(viper.GetString("saveKey"))
	if err != nil {
		return TrackerConfig{}, fmt.Errorf("invalid saveKey: %w", err)
	}

	cfg := TrackerConfig{
		UseMenu:  viper.GetBool("useMenu"),
		SaveKey:  saveKey,
		FilePath: viper.GetString("filePath"),
		Style:    viper.GetString("style"),
		Tokens: Tokens{
			X:    viper.GetString("xParameter"),
			Y:    viper.GetString("yParameter"),
			Z:    viper.GetString("zParameter"),
			W:    viper.GetString("wParameter"),
			Time: viper.GetString("timeParameter"),
			Name: viper.GetString("nameParameter"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return TrackerConfig{}, err
	}
	return cfg, nil
}

// Validate checks that the settings can produce output lines.
func (c TrackerConfig) Validate() error {
	var errs []error
	if c.FilePath == "" {
		errs = append(errs, errors.New("filePath must not be empty"))
	}
	if c.Style == "" {
		errs = append(errs, errors.New("style must not be empty"))
	}
	if c.SaveKey == keys.None {
		errs = append(errs, errors.New("saveKey must be set"))
	}

	seen := make(map[string]string, 6)
	for _, tok := range []struct{ key, value string }{
		{"xParameter", c.Tokens.X},
		{"yParameter", c.Tokens.Y},
		{"zParameter", c.Tokens.Z},
		{"wParameter", c.Tokens.W},
		{"timeParameter", c.Tokens.Time},
		{"nameParameter", c.Tokens.Name},
	} {
		if tok.value == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", tok.key))
			continue
		}
		if other, ok := seen[tok.value]; ok {
			errs = append(errs, fmt.Errorf("%s duplicates %s (%q)", tok.key, other, tok.value))
			continue
		}
		seen[tok.value] = tok.key
	}

	return errors.Join(errs...)
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}
