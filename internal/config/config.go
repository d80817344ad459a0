package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Telegram TelegramConfig
	WhatsApp WhatsAppConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type TelegramConfig struct {
	Token      string
	WebhookURL string
	// OperatorChatID receives forwarded commands when a policy's action
	// mode is forward or both.
	OperatorChatID string
}

type WhatsAppConfig struct {
	WebhookSecret string
}

type PipelineConfig struct {
	// PanelRequestsPerSecond bounds outbound calls per panel.
	PanelRequestsPerSecond int
	// RefreshCron is the robfig/cron spec for the open-order status sweep.
	RefreshCron string
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("PANEL_REQUESTS_PER_SECOND", 5)
	viper.SetDefault("ORDER_REFRESH_CRON", "0 */10 * * * *")

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Telegram: TelegramConfig{
			Token:          viper.GetString("TELEGRAM_TOKEN"),
			WebhookURL:     viper.GetString("TELEGRAM_WEBHOOK_URL"),
			OperatorChatID: viper.GetString("TELEGRAM_OPERATOR_CHAT_ID"),
		},
		WhatsApp: WhatsAppConfig{
			WebhookSecret: viper.GetString("WHATSAPP_WEBHOOK_SECRET"),
		},
		Pipeline: PipelineConfig{
			PanelRequestsPerSecond: viper.GetInt("PANEL_REQUESTS_PER_SECOND"),
			RefreshCron:            viper.GetString("ORDER_REFRESH_CRON"),
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Telegram.Token == "" {
		log.Println("WARNING: TELEGRAM_TOKEN is not set")
	}

	return cfg, nil
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}
