package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Session      SessionConfig      `mapstructure:"session"`
	SecurityCode SecurityCodeConfig `mapstructure:"security_code"`
	Agent        AgentConfig        `mapstructure:"agent"`
	Twilio       TwilioConfig       `mapstructure:"twilio"`
	OpenAI       OpenAIConfig       `mapstructure:"openai"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type SessionConfig struct {
	Secret      string        `mapstructure:"secret"`
	Expiry      time.Duration `mapstructure:"expiry"`
	CacheExpiry time.Duration `mapstructure:"cache_expiry"`
}

type SecurityCodeConfig struct {
	Length int           `mapstructure:"length"`
	Expiry time.Duration `mapstructure:"expiry"`
}

type AgentConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TwilioConfig struct {
	AccountSID          string `mapstructure:"account_sid"`
	AuthToken           string `mapstructure:"auth_token"`
	MessagingServiceSID string `mapstructure:"messaging_service_sid"`
	BaseURL             string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 90)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("session.expiry", 72*time.Hour)
	viper.SetDefault("session.cache_expiry", time.Minute)
	viper.SetDefault("security_code.length", 6)
	viper.SetDefault("security_code.expiry", 15*time.Minute)
	viper.SetDefault("agent.timeout", 60*time.Second)
	viper.SetDefault("twilio.base_url", "https://api.twilio.com")
	viper.SetDefault("openai.model", "gpt-4o-mini")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Session.Secret == "" {
		return nil, fmt.Errorf("session.secret is required")
	}

	return &config, nil
}
