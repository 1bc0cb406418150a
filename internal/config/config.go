package config

import (
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

type BotConfig struct {
	Token        string `yaml:"token" env:"BOT_TOKEN"`
	APIBaseURL   string `yaml:"api_base_url" env:"BOT_API_URL"`
	GatewayURL   string `yaml:"gateway_url" env:"BOT_GATEWAY_URL"`
	DatabasePath string `yaml:"database_path"`
	// Outbound REST requests per second before the client starts queueing.
	RequestsPerSecond int `yaml:"requests_per_second"`
}

var Conf BotConfig

// LoadConfig reads the YAML config file and then applies environment
// overrides, so secrets like the bot token never have to live on disk.
func LoadConfig(path string) {
	f, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(f, &Conf); err != nil {
			log.Fatalf("Failed to parse config file %s: %v", path, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("Failed to read config file %s: %v", path, err)
	}

	if err := env.Parse(&Conf); err != nil {
		log.Fatalf("Failed to parse environment config: %v", err)
	}

	if Conf.DatabasePath == "" {
		Conf.DatabasePath = "data/notes.db"
	}

	if Conf.APIBaseURL == "" {
		Conf.APIBaseURL = "https://discord.com/api/v10"
	}

	if Conf.GatewayURL == "" {
		Conf.GatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"
	}

	if Conf.RequestsPerSecond == 0 {
		Conf.RequestsPerSecond = 25
	}

	if Conf.Token == "" {
		log.Fatal("Missing bot token: set BOT_TOKEN or the token field in the config file")
	}
}
