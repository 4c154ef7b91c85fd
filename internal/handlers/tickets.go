package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/traits/internal/middleware"
	"github.com/localnerve/traits/internal/services"
	"github.com/localnerve/traits/internal/utils"
)

// BuyTicketInput is the body of POST /api/tickets. Email defaults to the session user.
type BuyTicketInput struct {
	Email         string `json:"email,omitempty"`
	TrainID       string `json:"trainId"`
	DepartureTime string `json:"departureTime" example:"2026-05-01T08:30:00Z"`
	ReserveSeat   bool   `json:"reserveSeat"`
}

// BuyTicket handles POST /api/tickets
// @Summary Buy a ticket
// @Description Records a purchase and optionally reserves a seat on the departure
// @Tags Tickets
// @Accept json
// @Produce json
// @Param ticket body BuyTicketInput true "Ticket"
// @Success 201 {object} models.Purchase
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tickets [post]
func (h *TraitsHandler) BuyTicket(c *fiber.Ctx) error {
	var body BuyTicketInput
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "Invalid input")
	}

	if body.Email == "" {
		if user := middleware.SessionUser(c); user != nil {
			body.Email = user.Email
		}
	}
	if !allowedEmail(c, body.Email) {
		return forbidden(c)
	}

	var conn *services.Connection
	if body.TrainID != "" || body.DepartureTime != "" {
		departure, err := parseTime(body.DepartureTime)
		if err != nil {
			return invalidInput(c, "Invalid departure time")
		}
		conn = &services.Connection{TrainID: body.TrainID, DepartureTime: departure}
	}

	purchase, err := h.Traits.BuyTicket(c.UserContext(), body.Email, conn, body.ReserveSeat)
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, purchase, fiber.StatusCreated)
}
