// network.go
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

package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/traits/internal/services"
	"github.com/localnerve/traits/internal/types"
	"github.com/localnerve/traits/internal/utils"
)

// AddStationInput is the body of POST /api/stations
type AddStationInput struct {
	Key     string          `json:"key"`
	Details json.RawMessage `json:"details,omitempty" swaggertype:"object"`
}

// ConnectInput is the body of POST /api/stations/:key/connections
type ConnectInput struct {
	To         string        `json:"to"`
	TravelTime types.FlexInt `json:"travelTime" swaggertype:"integer"`
}

// AddStation handles POST /api/stations
// @Summary Add a station
// @Tags Network
// @Accept json
// @Produce json
// @Param station body AddStationInput true "Station"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /stations [post]
func (h *TraitsHandler) AddStation(c *fiber.Ctx) error {
	var body AddStationInput
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "Invalid input")
	}

	var details interface{}
	if len(body.Details) > 0 {
		details = body.Details
	}

	if err := h.Traits.AddTrainStation(c.UserContext(), body.Key, details); err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fiber.StatusCreated, body.Key)
}

// ConnectStations handles POST /api/stations/:key/connections
// @Summary Connect two stations
// @Description Creates a directed connection from the path station to the body station
// @Tags Network
// @Accept json
// @Produce json
// @Param key path string true "Departure station key"
// @Param connection body ConnectInput true "Arrival station and travel time in minutes"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /stations/{key}/connections [post]
func (h *TraitsHandler) ConnectStations(c *fiber.Ctx) error {
	start := c.Params("key")

	var body ConnectInput
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "Invalid input")
	}

	if err := h.Traits.ConnectTrainStations(c.UserContext(), start, body.To, body.TravelTime.Int()); err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fiber.StatusCreated, start+"->"+body.To)
}

// GetAllSchedules handles GET /api/schedules
// @Summary List schedules
// @Tags Network
// @Produce json
// @Success 200 {array} topology.Schedule
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /schedules [get]
func (h *TraitsHandler) GetAllSchedules(c *fiber.Ctx) error {
	scheds, err := h.Traits.GetAllSchedules(c.UserContext())
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, scheds, fiber.StatusOK)
}

// AddSchedule handles POST /api/schedules
// @Summary Add a schedule
// @Description An omitted trainKey selects the most recently created train
// @Tags Network
// @Accept json
// @Produce json
// @Param schedule body services.ScheduleRequest true "Schedule"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /schedules [post]
func (h *TraitsHandler) AddSchedule(c *fiber.Ctx) error {
	var body services.ScheduleRequest
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "Invalid input")
	}

	id, err := h.Traits.AddSchedule(c.UserContext(), body)
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fiber.StatusCreated, id)
}

// SearchConnections handles GET /api/connections
// @Summary Search journeys
// @Description Ranks simple paths between two stations
// @Tags Network
// @Produce json
// @Param from query string true "Departure station key"
// @Param to query string true "Arrival station key"
// @Param sortBy query string false "OVERALL_TRAVEL_TIME or NUMBER_OF_HOPS"
// @Param order query string false "asc or desc"
// @Param limit query int false "Maximum results, default 5"
// @Success 200 {array} services.Journey
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /connections [get]
func (h *TraitsHandler) SearchConnections(c *fiber.Ctx) error {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		return invalidInput(c, "Both from and to are required")
	}

	sortBy, err := types.ParseSortingCriteria(c.Query("sortBy"))
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}

	var descending bool
	switch c.Query("order", "asc") {
	case "asc":
	case "desc":
		descending = true
	default:
		return invalidInput(c, "Invalid order")
	}

	limit, err := queryInt(c, "limit", services.DefaultSearchLimit)
	if err != nil || limit <= 0 {
		return invalidInput(c, "Invalid limit")
	}

	journeys, err := h.Traits.SearchConnections(c.UserContext(), from, to, services.SearchOptions{
		SortBy:     sortBy,
		Descending: descending,
		Limit:      limit,
	})
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, journeys, fiber.StatusOK)
}
