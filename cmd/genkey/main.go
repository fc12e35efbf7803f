package main

import (
	"fmt"
	"os"

	"github.com/markme/facecheck/internal/domain"
)

// genkey prints a new value for API_KEY. Pass "test" for a test key.
func main() {
	env := domain.EnvLive
	if len(os.Args) > 1 && os.Args[1] == "test" {
		env = domain.EnvTest
	}

	key, err := domain.GenerateAPIKey(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	fmt.Printf("API_KEY=%s\n", key)
}
