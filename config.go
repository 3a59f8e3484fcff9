package passbridge

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultLanguage       = "en"
	defaultEmptyValue     = "-"
	defaultMaxTokenLength = 1800
	defaultSaveURL        = "https://pay.google.com/gp/v/save/"
	defaultOpenSSL        = "openssl"
	defaultOrganization   = "Pass Issuer"
)

// defaultHints are merged under the configured hints. They name the labels
// EncodeArchive writes for fields that DecodeArchive cannot do without.
var defaultHints = map[string]string{
	HintDepartureDateTime: "Departure",
}

// Config holds everything the codecs read at conversion time. It is built
// once at process start and passed to NewConverter and NewDispatcher.
type Config struct {
	OrganizationName string            `yaml:"organization_name"`
	DefaultLanguage  string            `yaml:"default_language"`
	Languages        []string          `yaml:"languages"`
	FallbackIcon     string            `yaml:"fallback_icon"`
	EmptyValue       string            `yaml:"empty_value"`
	Hints            map[string]string `yaml:"hints"`
	WebServiceURL    string            `yaml:"web_service_url"`
	Signing          SigningConfig     `yaml:"signing"`
	Wallet           WalletConfig      `yaml:"wallet"`
}

// SigningConfig points at the material needed to sign archive manifests.
type SigningConfig struct {
	Certificate        string `yaml:"certificate"`
	Key                string `yaml:"key"`
	KeyPassword        string `yaml:"key_password"`
	TrustedRoot        string `yaml:"trusted_root"`
	PassTypeIdentifier string `yaml:"pass_type_identifier"`
	TeamIdentifier     string `yaml:"team_identifier"`
	OpenSSL            string `yaml:"openssl"`
}

// WalletConfig describes the token-payload issuer account.
type WalletConfig struct {
	IssuerID           string   `yaml:"issuer_id"`
	ServiceAccountFile string   `yaml:"service_account_file"`
	Origins            []string `yaml:"origins"`
	MaxTokenLength     int      `yaml:"max_token_length"`
	SaveURL            string   `yaml:"save_url"`
}

// LoadConfig reads a YAML configuration file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, newError(ErrCodeInvalidConfig, fmt.Errorf("parse config file: %w", err))
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, newError(ErrCodeInvalidConfig, err)
	}
	return &cfg, nil
}

// normalize sets default values for optional fields.
func (c *Config) normalize() {
	if c.OrganizationName == "" {
		c.OrganizationName = defaultOrganization
	}
	c.DefaultLanguage = strings.TrimSpace(c.DefaultLanguage)
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = defaultLanguage
	}
	if c.EmptyValue == "" {
		c.EmptyValue = defaultEmptyValue
	}
	hints := make(map[string]string, len(defaultHints)+len(c.Hints))
	for name, label := range defaultHints {
		hints[name] = label
	}
	for name, label := range c.Hints {
		hints[name] = label
	}
	c.Hints = hints
	if c.Signing.OpenSSL == "" {
		c.Signing.OpenSSL = defaultOpenSSL
	}
	if c.Wallet.MaxTokenLength <= 0 {
		c.Wallet.MaxTokenLength = defaultMaxTokenLength
	}
	if c.Wallet.SaveURL == "" {
		c.Wallet.SaveURL = defaultSaveURL
	}
}

// validate ensures the configuration is usable.
func (c Config) validate() error {
	for name, label := range c.Hints {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("hint %q has an empty archive label", name)
		}
	}
	if strings.Contains(c.Wallet.IssuerID, ".") {
		return errors.New("wallet issuer_id must not contain '.'")
	}
	return nil
}

// languages returns the default language followed by every configured
// extra language, without duplicates.
func (c *Config) languages() []string {
	out := []string{c.DefaultLanguage}
	seen := map[string]struct{}{c.DefaultLanguage: {}}
	for _, lang := range c.Languages {
		if _, ok := seen[lang]; ok || lang == "" {
			continue
		}
		seen[lang] = struct{}{}
		out = append(out, lang)
	}
	return out
}

// complete reports whether all signing material is configured.
func (s SigningConfig) complete() bool {
	return s.Certificate != "" && s.Key != "" && s.TrustedRoot != "" &&
		s.PassTypeIdentifier != "" && s.TeamIdentifier != ""
}

// DefaultConfig returns a normalized configuration with only the default
// hints, no signing material and no wallet account.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.normalize()
	return cfg
}
