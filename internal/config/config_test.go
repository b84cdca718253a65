package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallermazos/invoice-gateway/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Address)
	assert.Equal(t, "pro", cfg.Facturatech.Environment)
	assert.Equal(t, "SETT", cfg.Numbering.Prefix)
	assert.Equal(t, "Cucuta", cfg.Issuer.City)
	assert.Equal(t, "54001", cfg.Issuer.CityCode)
	assert.Equal(t, "https://api-pdf-to-html-vercel.vercel.app", cfg.PDFService.BaseURL)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
facturatech:
  environment: demo
  username: user@taller.co
numbering:
  prefix: PRUE
  range_from: 100
  range_to: 200
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Facturatech.Environment)
	assert.Equal(t, "PRUE", cfg.Numbering.Prefix)
	assert.Equal(t, int64(100), cfg.Numbering.RangeFrom)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FACTURATECH_ENV", "demo")
	t.Setenv("EMISOR_NIT", "901234567")
	t.Setenv("FACTURA_PREFIJO", "ENVP")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Facturatech.Environment)
	assert.Equal(t, "901234567", cfg.Issuer.NIT)
	assert.Equal(t, "ENVP", cfg.Numbering.Prefix)
}

func TestEndpointPerEnvironment(t *testing.T) {
	demo := FacturatechConfig{Environment: "demo"}
	pro := FacturatechConfig{Environment: "pro"}
	assert.Equal(t, "https://ws.facturatech.co/v2/demo/index.php", demo.Endpoint())
	assert.Equal(t, "https://ws.facturatech.co/v2/pro/index.php", pro.Endpoint())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"bad environment", func(c *Config) { c.Facturatech.Environment = "staging" }, false},
		{"empty prefix", func(c *Config) { c.Numbering.Prefix = "" }, false},
		{"inverted range", func(c *Config) { c.Numbering.RangeFrom = 10; c.Numbering.RangeTo = 5 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestIssuerParty(t *testing.T) {
	issuer := IssuerConfig{
		PersonType: "2",
		NIT:        "901234567",
		CheckDigit: "8",
		LegalName:  "MI TALLER MAZOS CAR",
	}
	p := issuer.Party()
	assert.Equal(t, model.PersonNatural, p.PersonType)
	assert.Equal(t, "NIT", p.DocumentType)
	assert.Equal(t, "31", p.DIANDocumentCode())
	assert.Equal(t, "901234567", p.DocumentNumber)
}
