package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/traits/internal/types"
	"github.com/localnerve/traits/internal/utils"
)

// AddTrainInput is the body of POST /api/trains. An empty key is generated.
type AddTrainInput struct {
	Key      string        `json:"key,omitempty"`
	Capacity types.FlexInt `json:"capacity" swaggertype:"integer"`
	Status   string        `json:"status" example:"OPERATIONAL"`
}

// UpdateTrainInput is the body of PATCH /api/trains/:key. Omitted fields are unchanged.
type UpdateTrainInput struct {
	Capacity *types.FlexInt `json:"capacity,omitempty" swaggertype:"integer"`
	Status   *string        `json:"status,omitempty" example:"DELAYED"`
}

// TrainStatusResponse is the body of GET /api/trains/:key/status
type TrainStatusResponse struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

// AddTrain handles POST /api/trains
// @Summary Add a train
// @Tags Trains
// @Accept json
// @Produce json
// @Param train body AddTrainInput true "Train"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /trains [post]
func (h *TraitsHandler) AddTrain(c *fiber.Ctx) error {
	var body AddTrainInput
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "Invalid input")
	}

	status, err := types.ParseTrainStatus(body.Status)
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}

	key, err := h.Traits.AddTrain(c.UserContext(), body.Key, body.Capacity.Int(), status)
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fiber.StatusCreated, key)
}

// UpdateTrain handles PATCH /api/trains/:key
// @Summary Update train capacity or status
// @Tags Trains
// @Accept json
// @Produce json
// @Param key path string true "Train key"
// @Param train body UpdateTrainInput true "Fields to change"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /trains/{key} [patch]
func (h *TraitsHandler) UpdateTrain(c *fiber.Ctx) error {
	key := c.Params("key")

	var body UpdateTrainInput
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "Invalid input")
	}

	var status *types.TrainStatus
	if body.Status != nil {
		parsed, err := types.ParseTrainStatus(*body.Status)
		if err != nil {
			return utils.ServiceErrorResponse(c, err)
		}
		status = &parsed
	}

	if err := h.Traits.UpdateTrainDetails(c.UserContext(), key, body.Capacity.Ptr(), status); err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fiber.StatusOK, key)
}

// DeleteTrain handles DELETE /api/trains/:key
// @Summary Delete a train
// @Description Deletes the train with its purchases, seat counters, schedules and bookings
// @Tags Trains
// @Produce json
// @Param key path string true "Train key"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /trains/{key} [delete]
func (h *TraitsHandler) DeleteTrain(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := h.Traits.DeleteTrain(c.UserContext(), key); err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fiber.StatusOK, key)
}

// GetTrainStatus handles GET /api/trains/:key/status
// @Summary Current train status
// @Tags Trains
// @Produce json
// @Param key path string true "Train key"
// @Success 200 {object} TrainStatusResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /trains/{key}/status [get]
func (h *TraitsHandler) GetTrainStatus(c *fiber.Ctx) error {
	key := c.Params("key")

	status, found, err := h.Traits.GetTrainCurrentStatus(c.UserContext(), key)
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	if !found {
		return utils.NotFoundResponse(c, "Train does not exist")
	}
	return utils.SuccessResponse(c, TrainStatusResponse{Key: key, Status: status.String()}, fiber.StatusOK)
}

// GetSeatAvailability handles GET /api/trains/:key/seats?departure=
// @Summary Seat availability of one departure
// @Tags Trains
// @Produce json
// @Param key path string true "Train key"
// @Param departure query string true "Departure time, RFC 3339"
// @Success 200 {object} services.SeatAvailability
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /trains/{key}/seats [get]
func (h *TraitsHandler) GetSeatAvailability(c *fiber.Ctx) error {
	departure, err := parseTime(c.Query("departure"))
	if err != nil {
		return invalidInput(c, "Invalid departure time")
	}

	seats, err := h.Traits.GetSeatAvailability(c.UserContext(), c.Params("key"), departure)
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, seats, fiber.StatusOK)
}

// GetTrainSchedules handles GET /api/trains/:key/schedules
// @Summary Schedules of one train
// @Tags Trains
// @Produce json
// @Param key path string true "Train key"
// @Success 200 {array} topology.Schedule
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /trains/{key}/schedules [get]
func (h *TraitsHandler) GetTrainSchedules(c *fiber.Ctx) error {
	scheds, err := h.Traits.GetTrainSchedules(c.UserContext(), c.Params("key"))
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, scheds, fiber.StatusOK)
}
