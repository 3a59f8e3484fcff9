package passbridge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passbridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
organization_name: Example Events
default_language: fr
languages: [en, de]
hints:
  eventName: Event
  seat: Place
signing:
  certificate: /certs/pass.pem
  key: /certs/pass.key
  trusted_root: /certs/wwdr.pem
  pass_type_identifier: pass.com.example
  team_identifier: ABCDE12345
wallet:
  issuer_id: "3388000000012345"
  origins: [https://example.com]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.OrganizationName != "Example Events" || cfg.DefaultLanguage != "fr" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Hints[HintSeat] != "Place" {
		t.Fatalf("unexpected hints: %v", cfg.Hints)
	}
	if !cfg.Signing.complete() {
		t.Fatalf("expected complete signing config: %+v", cfg.Signing)
	}
	if cfg.Signing.OpenSSL != "openssl" {
		t.Fatalf("unexpected openssl default: %s", cfg.Signing.OpenSSL)
	}
	if cfg.Wallet.MaxTokenLength != 1800 {
		t.Fatalf("unexpected max token length: %d", cfg.Wallet.MaxTokenLength)
	}
	if cfg.Wallet.SaveURL != "https://pay.google.com/gp/v/save/" {
		t.Fatalf("unexpected save url: %s", cfg.Wallet.SaveURL)
	}
	langs := cfg.languages()
	if len(langs) != 3 || langs[0] != "fr" || langs[1] != "en" || langs[2] != "de" {
		t.Fatalf("unexpected languages: %v", langs)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.DefaultLanguage != "en" || cfg.EmptyValue != "-" || cfg.OrganizationName == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Signing.complete() {
		t.Fatalf("empty signing config reported complete")
	}
	if cfg.Hints[HintDepartureDateTime] != "Departure" {
		t.Fatalf("default departure hint missing: %v", cfg.Hints)
	}
}

func TestNormalizeKeepsConfiguredHints(t *testing.T) {
	hints := map[string]string{HintDepartureDateTime: "Departs", HintSeat: "Place"}
	cfg := &Config{Hints: hints}
	cfg.normalize()
	if cfg.Hints[HintDepartureDateTime] != "Departs" || cfg.Hints[HintSeat] != "Place" {
		t.Fatalf("configured hints overridden: %v", cfg.Hints)
	}
	cfg.Hints[HintGate] = "Gate"
	if _, ok := hints[HintGate]; ok {
		t.Fatalf("normalize aliased the caller's hint map")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"issuer id": "wallet:\n  issuer_id: \"33.88\"\n",
		"hint":      "hints:\n  seat: \"  \"\n",
		"yaml":      "hints: [unclosed\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			var perr *Error
			if !errors.As(err, &perr) || perr.Code != ErrCodeInvalidConfig {
				t.Fatalf("expected invalid config error, got %v", err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestNewConverterValidatesConfig(t *testing.T) {
	if _, err := NewConverter(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := NewConverter(&Config{Wallet: WalletConfig{IssuerID: "a.b"}}); err == nil {
		t.Fatalf("expected error for dotted issuer id")
	}

	cfg := &Config{}
	c, err := NewConverter(cfg)
	if err != nil {
		t.Fatalf("NewConverter error: %v", err)
	}
	if cfg.DefaultLanguage != "" {
		t.Fatalf("caller config mutated: %+v", cfg)
	}
	if c.Config().DefaultLanguage != "en" {
		t.Fatalf("unexpected normalized language: %s", c.Config().DefaultLanguage)
	}
	if c.signer != nil {
		t.Fatalf("expected no signer without signing material")
	}
}

func TestNewConverterSignsWithCompleteMaterial(t *testing.T) {
	cfg := &Config{Signing: SigningConfig{
		Certificate:        "cert.pem",
		Key:                "key.pem",
		TrustedRoot:        "root.pem",
		PassTypeIdentifier: "pass.com.example",
		TeamIdentifier:     "TEAM",
	}}
	c, err := NewConverter(cfg)
	if err != nil {
		t.Fatalf("NewConverter error: %v", err)
	}
	if _, ok := c.signer.(*OpenSSLSigner); !ok {
		t.Fatalf("expected openssl signer, got %T", c.signer)
	}
}
