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
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/traits/internal/config"
	"github.com/localnerve/traits/internal/database"
	"github.com/localnerve/traits/internal/handlers"
	"github.com/localnerve/traits/internal/middleware"
	"github.com/localnerve/traits/internal/services"
	"github.com/localnerve/traits/internal/topology"

	_ "github.com/localnerve/traits/docs/api" // Swagger docs
)

// @title Traits API
// @version 1.0.0
// @description Transit network coordination over a relational ledger and a topology graph
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/traits
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	if err := config.LoadFile(os.Getenv("ENV_FILE")); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database (app pool, reads)
	appDB, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to app database: %v", err)
	}
	defer database.Close(appDB)

	// Connect to database (user pool, writes). A SQLite ledger is one database, so share the pool.
	userDB := appDB
	if !cfg.IsSQLite() {
		userDB, err = database.ConnectUser(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to user database: %v", err)
		}
		defer database.Close(userDB)
	}

	// Run auto-migrations with the account that holds DDL privileges
	if err := database.AutoMigrate(userDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Open the topology graph
	graph, err := topology.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open topology graph: %v", err)
	}
	defer func() {
		if err := graph.Close(); err != nil {
			log.Printf("Failed to close topology graph: %v", err)
		}
	}()

	traits := services.New(appDB, userDB, graph, cfg.SearchMaxHops)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		// Route params carry emails and station names
		UnescapePath: true,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("traits")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health
	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, appDB, graph)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())
	handlers.RegisterRoutes(api, cfg, &handlers.TraitsHandler{Traits: traits})

	// 404 handler
	app.Use(handlers.NotFound)

	if cfg.AuthEnabled() {
		log.Printf("Authorizer at %s will be initialized on first authenticated request", cfg.AuthzURL)
	} else {
		log.Printf("AUTHZ_URL not set, routes are not guarded")
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}
