package main

import (
	"github.com/joho/godotenv"

	"trackvault/internal/config"
)

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load("config/local.env")
	_ = godotenv.Load()

	return config.Load()
}
