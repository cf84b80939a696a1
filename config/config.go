package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// Config holds everything that is not a secret. API keys (Amadeus, Gemini,
// Stripe, SendGrid), the gateway shared secret and the profile encryption
// key are read from the environment by the components that use them.
type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Amadeus struct {
		// "test" talks to test.api.amadeus.com, "production" to api.amadeus.com.
		Env          string        `mapstructure:"env"`
		SearchResult time.Duration `mapstructure:"searchResultTTL"`
	} `mapstructure:"amadeus"`
	Gemini struct {
		Model string `mapstructure:"model"`
	} `mapstructure:"gemini"`
	Booking struct {
		// MockMode keeps the agent off real sites and payment rails.
		MockMode       bool          `mapstructure:"mockMode"`
		Workers        int           `mapstructure:"workers"`
		QueueSize      int           `mapstructure:"queueSize"`
		MaxAgentSteps  int           `mapstructure:"maxAgentSteps"`
		RetryDelay     time.Duration `mapstructure:"retryDelay"`
		SimStepDelay   time.Duration `mapstructure:"simStepDelay"`
		BrowserlessURL string        `mapstructure:"browserlessURL"`
	} `mapstructure:"booking"`
	Email struct {
		FromAddress string `mapstructure:"fromAddress"`
		FromName    string `mapstructure:"fromName"`
	} `mapstructure:"email"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
