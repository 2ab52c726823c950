package main

import (
	"os"

	"github.com/joho/godotenv"
)

func init() {
	// Load environment from .env if present. Order: .env, then .env.local
	// (overrides), then ENV_FILE (overrides both).
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")
	if file := os.Getenv("ENV_FILE"); file != "" {
		_ = godotenv.Overload(file)
	}
}
