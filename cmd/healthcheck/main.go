// main.go
//
// Transit network coordination service: ledger, topology, booking and search
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of traits.
// traits is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// traits is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with traits.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/traits/internal/config"
	"github.com/localnerve/traits/internal/database"
	"github.com/localnerve/traits/internal/services"
	"github.com/localnerve/traits/internal/topology"
)

// Probes a running server's /health endpoint. With -direct the stores are opened in process
// instead, which needs the server stopped when the graph is on disk.
func main() {
	var (
		direct  bool
		url     string
		timeout time.Duration
	)
	flag.BoolVar(&direct, "direct", false, "check the ledger, graph and authorizer in process")
	flag.StringVar(&url, "url", "", "health endpoint, default http://localhost:$PORT/health")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	flag.Parse()

	if err := config.LoadFile(os.Getenv("ENV_FILE")); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var result services.HealthCheckResult
	if direct {
		result = checkDirect(cfg)
	} else {
		if url == "" {
			url = fmt.Sprintf("http://localhost:%s/health", cfg.Port)
		}
		result = checkServer(url, timeout)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal health check result: %v", err)
	}
	fmt.Println(string(output))

	if result.Status != "healthy" {
		os.Exit(1)
	}
}

func checkServer(url string, timeout time.Duration) services.HealthCheckResult {
	agent := fiber.Get(url).Timeout(timeout)

	var result services.HealthCheckResult
	code, body, errs := agent.Struct(&result)
	if len(errs) > 0 {
		return services.HealthCheckResult{
			Status:       "unhealthy",
			ErrorMessage: fmt.Sprintf("health request to %s failed: %v", url, errs[0]),
		}
	}
	if code != fiber.StatusOK && result.Status == "" {
		return services.HealthCheckResult{
			Status:       "unhealthy",
			ErrorMessage: fmt.Sprintf("health request to %s returned %d: %s", url, code, body),
		}
	}
	return result
}

func checkDirect(cfg *config.Config) services.HealthCheckResult {
	appDB, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(appDB)

	graph, err := topology.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open topology graph: %v", err)
	}
	defer graph.Close()

	return services.HealthCheck(cfg, appDB, graph)
}
