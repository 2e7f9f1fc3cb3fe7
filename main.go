package main

import (
	"github.com/joho/godotenv"

	"github.com/mkueh/citibike-analyse/cmd"
)

func main() {
	// Optional .env with AWS or database credentials.
	_ = godotenv.Load()
	cmd.Execute()
}
