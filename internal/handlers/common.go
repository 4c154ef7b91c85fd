// common.go
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
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/traits/internal/middleware"
	"github.com/localnerve/traits/internal/services"
	"github.com/localnerve/traits/internal/utils"
)

// TraitsHandler serves the coordinator over HTTP
type TraitsHandler struct {
	Traits *services.Traits
}

// ErrorHandler is the fiber error handler. Classified errors keep their status,
// fiber errors keep theirs and anything else is a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		errorType := "unknown"
		if fe.Code == fiber.StatusNotFound {
			errorType = "notFound"
		}
		return utils.ErrorResponse(c, fe.Message, fe.Code, errorType)
	}
	return utils.ServiceErrorResponse(c, err)
}

// NotFound is the catch-all handler for unknown routes
func NotFound(c *fiber.Ctx) error {
	return utils.NotFoundResponse(c, "[404] Resource Not Found")
}

func invalidInput(c *fiber.Ctx, message string) error {
	return utils.ErrorResponse(c, message, fiber.StatusBadRequest, "validation")
}

// parseTime accepts RFC 3339 timestamps with or without fractional seconds
func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
}

// queryInt reads an optional integer query parameter
func queryInt(c *fiber.Ctx, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// allowedEmail reports whether the session may act for email. Without authorization
// every request is allowed; admins may act for anyone.
func allowedEmail(c *fiber.Ctx, email string) bool {
	user := middleware.SessionUser(c)
	if user == nil {
		return true
	}
	for _, role := range user.Roles {
		if role == "admin" {
			return true
		}
	}
	return strings.EqualFold(user.Email, email)
}

func forbidden(c *fiber.Ctx) error {
	return utils.ErrorResponse(c, "Not allowed to act for this user", fiber.StatusForbidden, "traits.authorization.user")
}
