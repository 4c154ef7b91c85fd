package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/traits/internal/config"
	"github.com/localnerve/traits/internal/testenv"
)

const usage = `
Run the traits ledger (and optionally an Authorizer) in containers until interrupted.
DB_IMAGE selects the MariaDB image; AUTHZ_IMAGE, when set, also starts an Authorizer.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH] [-o OUT_ENV_PATH]

ENV_FILE_PATH: .env file read before starting
OUT_ENV_PATH:  .env file written with the mapped host and ports, for the server and traitsctl

example
  testcontainers -f .env.test -o .env.local
  ENV_FILE=.env.local go run ./cmd/server
`

func main() {
	var (
		showHelp bool
		envIn    string
		envOut   string
	)
	flag.BoolVar(&showHelp, "h", false, "show help")
	flag.StringVar(&envIn, "f", "", "path to the .env file")
	flag.StringVar(&envOut, "o", "", "path of the .env file to write")
	flag.Parse()

	if showHelp {
		fmt.Println(usage)
		return
	}

	if envIn != "" {
		log.Printf("Loading environment variables from %s", envIn)
	}
	if err := config.LoadFile(envIn); err != nil {
		log.Fatalf("Failed to load environment variables: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	env, err := testenv.Start(ctx, testenv.OptionsFromEnv(), log.Printf)
	if err != nil {
		log.Fatalf("Failed to create test containers: %v", err)
	}

	if envOut != "" {
		if err := godotenv.Write(envFile(env.Config()), envOut); err != nil {
			log.Printf("Failed to write %s: %v", envOut, err)
		} else {
			log.Printf("Wrote service environment to %s", envOut)
		}
	}

	log.Printf("Ledger at %s:%s, interrupt to terminate", env.Host, env.Port)
	if env.AuthzURL != "" {
		log.Printf("Authorizer at %s", env.AuthzURL)
	}

	<-ctx.Done()
	log.Printf("Terminating test containers...")
	if err := env.Terminate(context.Background()); err != nil {
		log.Fatalf("Failed to terminate test containers: %v", err)
	}
}

// envFile renders a configuration as the variables config.Load reads
func envFile(cfg *config.Config) map[string]string {
	vars := map[string]string{
		"PORT":                    cfg.Port,
		"DB_TYPE":                 cfg.DBType,
		"DB_HOST":                 cfg.DBHost,
		"DB_PORT":                 cfg.DBPort,
		"DB_APP_DATABASE":         cfg.DBAppDatabase,
		"DB_APP_USER":             cfg.DBAppUser,
		"DB_APP_PASSWORD":         cfg.DBAppPassword,
		"DB_APP_CONNECTION_LIMIT": strconv.Itoa(cfg.DBAppConnectionLimit),
		"DB_USER":                 cfg.DBUser,
		"DB_PASSWORD":             cfg.DBPassword,
		"DB_CONNECTION_LIMIT":     strconv.Itoa(cfg.DBConnectionLimit),
		"DB_LOG_LEVEL":            cfg.DBLogLevel,
		"GRAPH_STORAGE":           cfg.GraphStorage,
		"GRAPH_PATH":              cfg.GraphPath,
		"GRAPH_PARTITION":         cfg.GraphPartition,
		"SEARCH_MAX_HOPS":         strconv.Itoa(cfg.SearchMaxHops),
	}
	if cfg.AuthEnabled() {
		vars["AUTHZ_URL"] = cfg.AuthzURL
		vars["AUTHZ_CLIENT_ID"] = cfg.AuthzClientID
	}
	return vars
}
