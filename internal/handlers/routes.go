package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/traits/internal/config"
	"github.com/localnerve/traits/internal/middleware"
)

// RegisterRoutes mounts the API on router (normally the /api group).
// Admin routes mutate the network, user routes act for one passenger.
func RegisterRoutes(router fiber.Router, cfg *config.Config, h *TraitsHandler) {
	admin := middleware.AuthAdmin(cfg)
	user := middleware.AuthUser(cfg)

	router.Get("/users", admin, h.GetAllUsers)
	router.Post("/users", h.AddUser)
	router.Delete("/users/:email", admin, h.DeleteUser)
	router.Get("/users/:email/purchases", user, h.GetPurchaseHistory)

	router.Post("/trains", admin, h.AddTrain)
	router.Patch("/trains/:key", admin, h.UpdateTrain)
	router.Delete("/trains/:key", admin, h.DeleteTrain)
	router.Get("/trains/:key/status", h.GetTrainStatus)
	router.Get("/trains/:key/seats", h.GetSeatAvailability)
	router.Get("/trains/:key/schedules", h.GetTrainSchedules)

	router.Post("/stations", admin, h.AddStation)
	router.Post("/stations/:key/connections", admin, h.ConnectStations)

	router.Get("/schedules", h.GetAllSchedules)
	router.Post("/schedules", admin, h.AddSchedule)

	router.Get("/connections", h.SearchConnections)

	router.Post("/tickets", user, h.BuyTicket)
}
