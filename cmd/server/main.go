package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/Kaplan-Paving/fleet-backend/internal/cli"
)

func main() {
	// A missing .env is fine; real environments set variables directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cli.Execute()
}
