package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"scald/internal/config"
	"scald/internal/logging"
	"scald/internal/remote/google"
)

// scald-auth runs the one-time interactive OAuth flow. It prints the
// authorization URL, reads the code back, and saves the token where the
// daemon expects it.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.Logging.Level, "text")

	tokens, err := google.NewTokenManager(cfg.Google.CredentialsFile, cfg.Google.TokenFile, logger)
	if err != nil {
		log.Fatalf("failed to load google credentials: %v", err)
	}

	fmt.Println("Visit the URL below, authorize access, and paste the code here:")
	fmt.Println()
	fmt.Println("  " + tokens.AuthURL())
	fmt.Println()
	fmt.Print("Authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("failed to read authorization code: %v", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		log.Fatal("no authorization code provided")
	}

	token, err := tokens.Exchange(context.Background(), code)
	if err != nil {
		log.Fatalf("failed to exchange authorization code: %v", err)
	}

	fmt.Printf("Token saved to %s (expires %s)\n", cfg.Google.TokenFile, token.Expiry.Format("2006-01-02 15:04:05"))
}
