package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App       App       `mapstructure:",squash"`
	Database  Database  `mapstructure:",squash"`
	Data      Data      `mapstructure:",squash"`
	Gemini    Gemini    `mapstructure:",squash"`
	Audit     Audit     `mapstructure:",squash"`
	AuditSync AuditSync `mapstructure:",squash"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
	Enabled  bool   `mapstructure:"database_enabled"`
}

// Data aponta para o diretório dos exports CSV e os nomes dos datasets
type Data struct {
	Dir             string `mapstructure:"data_dir"`
	SpikesFile      string `mapstructure:"data_spikes_file"`
	MissingFile     string `mapstructure:"data_missing_file"`
	SessionsFile    string `mapstructure:"data_sessions_file"`
	LineItemsFile   string `mapstructure:"data_dv360_file"`
	TagsFile        string `mapstructure:"data_gtm_file"`
	PropertiesFile  string `mapstructure:"data_ga4_file"`
	WebsiteScanFile string `mapstructure:"data_website_scan_file"`
}

// Gemini configura a capacidade externa de geração de texto.
// A ausência de chave é um estado normal: os agentes degradam para templates.
type Gemini struct {
	APIKey         string  `mapstructure:"gemini_api_key"`
	Model          string  `mapstructure:"gemini_model"`
	Temperature    float64 `mapstructure:"gemini_temperature"`
	MaxTokens      int     `mapstructure:"gemini_max_tokens"`
	TimeoutSeconds int     `mapstructure:"gemini_timeout_seconds"`
}

// Audit carrega os limiares das verificações, tratados como configuração
// e não como literais no código
type Audit struct {
	StalePixelDays                int      `mapstructure:"audit_stale_pixel_days"`
	DiscrepancyThresholdPercent   float64  `mapstructure:"audit_discrepancy_threshold_percent"`
	MinRetentionMonths            int      `mapstructure:"audit_min_retention_months"`
	EnhancedMeasurementMinMissing int      `mapstructure:"audit_enhanced_measurement_min_missing"`
	RequiredGatewayDomains        []string `mapstructure:"audit_required_gateway_domains"`
	KeyGatewayDomain              string   `mapstructure:"audit_key_gateway_domain"`
	BlockedStatusSentinel         string   `mapstructure:"audit_blocked_status_sentinel"`
	MinBatchSize                  int      `mapstructure:"audit_min_batch_size"`
	MaxBatchSize                  int      `mapstructure:"audit_max_batch_size"`
}

type AuditSync struct {
	CronSchedule  string `mapstructure:"audit_sync_cron"`
	Enabled       bool   `mapstructure:"audit_sync_enabled"`
	RetentionDays int    `mapstructure:"audit_sync_retention_days"`
}

func SetDefaults() {
	viper.SetDefault("LOG_LEVEL", "debug")

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/watchdog")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")
	viper.SetDefault("DATABASE_ENABLED", false)

	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("DATA_SPIKES_FILE", "Floodlight_Report_Spikes.csv")
	viper.SetDefault("DATA_MISSING_FILE", "Floodlight_Report_Missing.csv")
	viper.SetDefault("DATA_SESSIONS_FILE", "GA4_Sample_Traffic_from_Floodlight_60days.csv")
	viper.SetDefault("DATA_DV360_FILE", "dv360_audit_ready.csv")
	viper.SetDefault("DATA_GTM_FILE", "gtm_audit_ready.csv")
	viper.SetDefault("DATA_GA4_FILE", "ga4_audit_ready.csv")
	viper.SetDefault("DATA_WEBSITE_SCAN_FILE", "website_scan_audit_ready.csv")

	viper.SetDefault("GEMINI_API_KEY", "") // Ausente por padrão: fallback de template
	viper.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	viper.SetDefault("GEMINI_TEMPERATURE", 0.2)
	viper.SetDefault("GEMINI_MAX_TOKENS", 350)
	viper.SetDefault("GEMINI_TIMEOUT_SECONDS", 30)

	// Limiares das verificações de auditoria
	viper.SetDefault("AUDIT_STALE_PIXEL_DAYS", 7)
	viper.SetDefault("AUDIT_DISCREPANCY_THRESHOLD_PERCENT", 25.0)
	viper.SetDefault("AUDIT_MIN_RETENTION_MONTHS", 14)
	viper.SetDefault("AUDIT_ENHANCED_MEASUREMENT_MIN_MISSING", 2)
	viper.SetDefault("AUDIT_REQUIRED_GATEWAY_DOMAINS", "paypal.com,stripe.com,gateway.com")
	viper.SetDefault("AUDIT_KEY_GATEWAY_DOMAIN", "paypal.com")
	viper.SetDefault("AUDIT_BLOCKED_STATUS_SENTINEL", "403 BLOCKED")
	viper.SetDefault("AUDIT_MIN_BATCH_SIZE", 20)
	viper.SetDefault("AUDIT_MAX_BATCH_SIZE", 30)

	viper.SetDefault("AUDIT_SYNC_CRON", "0 3 * * *") // Todos os dias às 3h da manhã
	viper.SetDefault("AUDIT_SYNC_ENABLED", false)
	viper.SetDefault("AUDIT_SYNC_RETENTION_DAYS", 90)
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	} else {
		logrus.Info("Arquivo .env lido pelo Viper com sucesso")
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
		filepath.Join(cwd, "../.env"),
		filepath.Join(cwd, "../../.env"),
	}

	for _, location := range locations {
		err := godotenv.Load(location)
		if err == nil {
			logrus.Info("Arquivo .env carregado com sucesso de:", location)
			return
		}
	}

	logrus.Warn("Não foi possível carregar o arquivo .env de nenhuma localização conhecida")
}
