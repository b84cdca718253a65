package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Facturatech FacturatechConfig `mapstructure:"facturatech"`
	Issuer      IssuerConfig      `mapstructure:"issuer"`
	Numbering   NumberingConfig   `mapstructure:"numbering"`
	Supabase    SupabaseConfig    `mapstructure:"supabase"`
	PDFService  PDFServiceConfig  `mapstructure:"pdf_service"`
	Logger      LoggerConfig      `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Debug        bool          `mapstructure:"debug"`
}

// FacturatechConfig holds the SOAP webservice credentials and endpoint.
// PasswordHash is the SHA-256 hex credential issued by provider support;
// it is sent as-is, never re-hashed.
type FacturatechConfig struct {
	Environment  string        `mapstructure:"environment"` // demo or pro
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"password_hash"`
	ProxyURL     string        `mapstructure:"proxy_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Endpoint returns the webservice URL for the configured environment
func (c FacturatechConfig) Endpoint() string {
	return fmt.Sprintf("https://ws.facturatech.co/v2/%s/index.php", c.Environment)
}

// IssuerConfig describes the invoice issuer (the shop)
type IssuerConfig struct {
	PersonType           string `mapstructure:"person_type"` // 1=juridical, 2=natural
	NIT                  string `mapstructure:"nit"`
	CheckDigit           string `mapstructure:"check_digit"`
	LegalName            string `mapstructure:"legal_name"`
	TradeName            string `mapstructure:"trade_name"`
	Address              string `mapstructure:"address"`
	CityCode             string `mapstructure:"city_code"`
	City                 string `mapstructure:"city"`
	Department           string `mapstructure:"department"`
	DepartmentCode       string `mapstructure:"department_code"`
	Country              string `mapstructure:"country"`
	Phone                string `mapstructure:"phone"`
	Email                string `mapstructure:"email"`
	FiscalResponsibility string `mapstructure:"fiscal_responsibility"`
	TaxRegime            string `mapstructure:"tax_regime"`
}

// NumberingConfig holds the invoicing numeration resolution
type NumberingConfig struct {
	Prefix     string `mapstructure:"prefix"`
	Resolution string `mapstructure:"resolution"`
	RangeFrom  int64  `mapstructure:"range_from"`
	RangeTo    int64  `mapstructure:"range_to"`
}

// SupabaseConfig holds the hosted database/auth backend connection
type SupabaseConfig struct {
	URL        string        `mapstructure:"url"`
	ServiceKey string        `mapstructure:"service_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// PDFServiceConfig holds the external HTML-to-PDF conversion API
type PDFServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("GATEWAY")
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.debug", false)

	v.SetDefault("facturatech.environment", "pro")
	v.SetDefault("facturatech.timeout", 2*time.Minute)

	v.SetDefault("issuer.person_type", "2")
	v.SetDefault("issuer.legal_name", "MI TALLER MAZOS CAR")
	v.SetDefault("issuer.trade_name", "MI TALLER MAZOS CAR")
	v.SetDefault("issuer.address", "Calle 1 #7E-72 Quinta Oriental")
	v.SetDefault("issuer.city_code", "54001")
	v.SetDefault("issuer.city", "Cucuta")
	v.SetDefault("issuer.department", "Norte de Santander")
	v.SetDefault("issuer.department_code", "54")
	v.SetDefault("issuer.country", "CO")
	v.SetDefault("issuer.fiscal_responsibility", "R-99-PN")
	v.SetDefault("issuer.tax_regime", "49")

	v.SetDefault("numbering.prefix", "SETT")
	v.SetDefault("numbering.range_from", int64(1))
	v.SetDefault("numbering.range_to", int64(5000))

	v.SetDefault("supabase.timeout", 15*time.Second)

	v.SetDefault("pdf_service.base_url", "https://api-pdf-to-html-vercel.vercel.app")
	v.SetDefault("pdf_service.timeout", 60*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Kept compatible with the env names the deployment already uses
	v.BindEnv("facturatech.username", "FACTURATECH_USER")
	v.BindEnv("facturatech.password_hash", "FACTURATECH_PASSWORD")
	v.BindEnv("facturatech.environment", "FACTURATECH_ENV")
	v.BindEnv("facturatech.proxy_url", "FACTURATECH_PROXY_URL")
	v.BindEnv("issuer.nit", "EMISOR_NIT")
	v.BindEnv("issuer.check_digit", "EMISOR_DV")
	v.BindEnv("numbering.prefix", "FACTURA_PREFIJO")
	v.BindEnv("supabase.url", "SUPABASE_URL")
	v.BindEnv("supabase.service_key", "SUPABASE_SERVICE_KEY")
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	switch c.Facturatech.Environment {
	case "demo", "pro":
	default:
		return fmt.Errorf("facturatech.environment must be demo or pro, got %q", c.Facturatech.Environment)
	}
	if c.Numbering.Prefix == "" {
		return fmt.Errorf("numbering.prefix is required")
	}
	if c.Numbering.RangeFrom < 1 || c.Numbering.RangeTo < c.Numbering.RangeFrom {
		return fmt.Errorf("numbering range [%d, %d] is invalid", c.Numbering.RangeFrom, c.Numbering.RangeTo)
	}
	return nil
}
