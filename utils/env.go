package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// LoadEnv loads .env from the working directory when present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, continuing")
	}
}

// GetDatabaseURL returns DATABASE_URL from the environment or .env.
func GetDatabaseURL() (string, error) {
	LoadEnv()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return "", fmt.Errorf("DATABASE_URL not set (in .env or environment)")
	}
	return url, nil
}
