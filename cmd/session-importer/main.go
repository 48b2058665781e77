package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"ig-comment-bot/internal/adapters/filestore"
	"ig-comment-bot/internal/adapters/repo"
	"ig-comment-bot/internal/infra/config"
	"ig-comment-bot/internal/infra/db"
)

func main() {
	var (
		filePath string
		encode   bool
	)
	flag.StringVar(&filePath, "file", "session.json", "Path to Instagram session JSON file")
	flag.BoolVar(&encode, "encode", false, "Print the session as base64 for SESSION_DATA instead of storing it")
	flag.Parse()

	sessionData, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("session-importer: failed to read session file")
	}
	normalized, decoded, err := filestore.NormalizeSessionBytes(sessionData)
	if err != nil {
		log.Fatal().Err(err).Msg("session-importer: unsupported session format")
	}

	if encode {
		fmt.Println(base64.StdEncoding.EncodeToString(normalized))
		fmt.Fprintln(os.Stderr, "Set the value above as SESSION_DATA")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("session-importer: failed to load config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("session-importer: DATABASE_URL environment variable is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("session-importer: failed to connect to database")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	if err := repoAdapter.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("session-importer: failed to prepare schema")
	}
	if err := repoAdapter.StoreSession(ctx, normalized); err != nil {
		log.Fatal().Err(err).Msg("session-importer: failed to store session in database")
	}

	if decoded {
		fmt.Println("Session was decoded from base64 before storing")
	}
	fmt.Printf("Stored Instagram session (%d bytes) in database\n", len(normalized))
}
