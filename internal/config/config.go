package config

import (
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Rorical/RoriChat/internal/session"
)

const (
	DefaultPath          = "/send_and_reply"
	DefaultMode          = "streaming"
	DefaultInitHeader    = session.DefaultInitHeader
	DefaultSessionHeader = session.DefaultSessionHeader
	DefaultTimeout       = 60 * time.Second
	DefaultLogLevel      = "info"
)

var validModes = map[string]bool{
	"streaming":   true,
	"single-shot": true,
	"auto":        true,
}

type Profile struct {
	Endpoint          string        `yaml:"endpoint"`
	Path              string        `yaml:"path,omitempty"`
	Mode              string        `yaml:"mode,omitempty"`
	InitHeader        string        `yaml:"init_header,omitempty"`
	SessionHeader     string        `yaml:"session_header,omitempty"`
	SessionSendHeader string        `yaml:"session_send_header,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	Greeting          string        `yaml:"greeting,omitempty"`
	MaxMalformedLines int           `yaml:"max_malformed_lines,omitempty"`
}

// URL joins the endpoint and path of the profile.
func (p Profile) URL() string {
	path := p.Path
	if path == "" {
		path = DefaultPath
	}
	return strings.TrimRight(p.Endpoint, "/") + "/" + strings.TrimLeft(path, "/")
}

func (p Profile) withDefaults() Profile {
	if p.Path == "" {
		p.Path = DefaultPath
	}
	if p.Mode == "" {
		p.Mode = DefaultMode
	}
	if p.InitHeader == "" {
		p.InitHeader = DefaultInitHeader
	}
	if p.SessionHeader == "" {
		p.SessionHeader = DefaultSessionHeader
	}
	if p.SessionSendHeader == "" {
		p.SessionSendHeader = p.SessionHeader
	}
	return p
}

type Config struct {
	Profiles      map[string]Profile `yaml:"profiles"`
	ActiveProfile string             `yaml:"active_profile"`
	LogLevel      string             `yaml:"log_level,omitempty"`
	LogFile       string             `yaml:"log_file,omitempty"`

	currentProfile *Profile
}

func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get config path")
	}

	if err := ensureConfigDir(configPath); err != nil {
		return nil, errors.Wrap(err, "failed to create config directory")
	}

	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	if err := config.setCurrentProfile(); err != nil {
		return nil, errors.Wrap(err, "failed to set current profile")
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return config, nil
}

// NewConfig builds an in-memory Config without touching the config file.
func NewConfig(profiles map[string]Profile, active string) (*Config, error) {
	config := &Config{Profiles: profiles, ActiveProfile: active}
	if err := config.setCurrentProfile(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return config, nil
}

// SwitchProfile makes name the active profile. RORICHAT_* overrides follow
// the active profile.
func (c *Config) SwitchProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return errors.Errorf("profile %q not found", name)
	}
	c.ActiveProfile = name
	if err := c.setCurrentProfile(); err != nil {
		return err
	}
	c.applyEnv()
	return errors.Wrapf(validateProfile(*c.currentProfile), "profile %q", name)
}

// applyEnv overlays RORICHAT_* variables on the active profile. The overrides
// live only in memory and are never saved.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("RORICHAT_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if c.currentProfile == nil {
		return
	}
	if v, ok := os.LookupEnv("RORICHAT_ENDPOINT"); ok && v != "" {
		c.currentProfile.Endpoint = v
	}
	if v, ok := os.LookupEnv("RORICHAT_MODE"); ok && v != "" {
		c.currentProfile.Mode = v
	}
}

// Validate checks every profile, not only the active one, so a broken entry
// is reported when the file is loaded rather than when it is switched to.
func (c *Config) Validate() error {
	switch strings.ToLower(c.GetLogLevel()) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown log level %q", c.LogLevel)
	}

	profiles := make(map[string]Profile, len(c.Profiles)+1)
	for name, p := range c.Profiles {
		profiles[name] = p
	}
	if c.currentProfile != nil {
		profiles[c.ActiveProfile] = *c.currentProfile
	}

	for name, p := range profiles {
		if err := validateProfile(p); err != nil {
			return errors.Wrapf(err, "profile %q", name)
		}
	}
	return nil
}

func validateProfile(p Profile) error {
	if p.Mode != "" && !validModes[p.Mode] {
		return errors.Errorf("unknown mode %q (want streaming, single-shot or auto)", p.Mode)
	}
	if p.Endpoint != "" {
		if err := ValidateEndpoint(p.Endpoint); err != nil {
			return err
		}
	}
	if p.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if p.MaxMalformedLines < 0 {
		return errors.New("max_malformed_lines must not be negative")
	}
	return nil
}

// ValidateEndpoint accepts absolute http(s) URLs.
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.Wrap(err, "invalid endpoint")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("endpoint %q must use http or https", endpoint)
	}
	if u.Host == "" {
		return errors.Errorf("endpoint %q has no host", endpoint)
	}
	return nil
}

func (c *Config) IsValid() bool {
	return c.currentProfile != nil && c.currentProfile.Endpoint != ""
}

// Current returns the active profile with defaults filled in.
func (c *Config) Current() Profile {
	if c.currentProfile == nil {
		return Profile{}.withDefaults()
	}
	return c.currentProfile.withDefaults()
}

func (c *Config) GetEndpoint() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.Endpoint
}

func (c *Config) GetMode() string {
	return c.Current().Mode
}

func (c *Config) GetTimeout() time.Duration {
	if c.currentProfile == nil || c.currentProfile.Timeout == 0 {
		return DefaultTimeout
	}
	return c.currentProfile.Timeout
}

func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return DefaultLogLevel
	}
	return c.LogLevel
}

// GetLogFile returns the log file path, defaulting next to the config file.
func (c *Config) GetLogFile() (string, error) {
	if c.LogFile != "" {
		return c.LogFile, nil
	}
	configPath, err := getConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(configPath), "rorichat.log"), nil
}

// ProfileNames returns the profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getConfigPath() (string, error) {
	var configDir string

	// Use RORICHAT_HOME if set, otherwise use user's home directory
	if home := os.Getenv("RORICHAT_HOME"); home != "" {
		configDir = home
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = homeDir
	}

	return filepath.Join(configDir, ".rorichat", "config.yaml"), nil
}

func ensureConfigDir(configPath string) error {
	configDir := filepath.Dir(configPath)
	return os.MkdirAll(configDir, 0755)
}

func loadConfigFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "parse config.yaml")
	}

	return &config, nil
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles: map[string]Profile{
			"default": {
				Path: DefaultPath,
				Mode: DefaultMode,
			},
		},
		ActiveProfile: "default",
	}

	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}

	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return errors.Wrap(err, "failed to get config path")
	}

	return saveConfig(c, configPath)
}

func (c *Config) setCurrentProfile() error {
	if len(c.Profiles) == 0 {
		return errors.New("no profiles defined")
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// Fall back to the first profile in name order
		name := c.ProfileNames()[0]
		c.ActiveProfile = name
		profile = c.Profiles[name]
	}

	c.currentProfile = &profile
	return nil
}
