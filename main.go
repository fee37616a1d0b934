package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/spigell/hh-matcher/cmd"
)

func main() {
	// .env is optional; it only fills variables that are not set yet
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
