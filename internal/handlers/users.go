package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/traits/internal/utils"
)

// AddUserInput is the body of POST /api/users
type AddUserInput struct {
	Email   string          `json:"email"`
	Details json.RawMessage `json:"details,omitempty" swaggertype:"object"`
}

// GetAllUsers handles GET /api/users
// @Summary List users
// @Description List every registered user email in ascending order
// @Tags Users
// @Produce json
// @Success 200 {array} string
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /users [get]
func (h *TraitsHandler) GetAllUsers(c *fiber.Ctx) error {
	users, err := h.Traits.GetAllUsers(c.UserContext())
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, users, fiber.StatusOK)
}

// AddUser handles POST /api/users
// @Summary Register a user
// @Tags Users
// @Accept json
// @Produce json
// @Param user body AddUserInput true "User"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /users [post]
func (h *TraitsHandler) AddUser(c *fiber.Ctx) error {
	var body AddUserInput
	if err := c.BodyParser(&body); err != nil {
		return invalidInput(c, "Invalid input")
	}

	var details interface{}
	if len(body.Details) > 0 {
		details = body.Details
	}

	if err := h.Traits.AddUser(c.UserContext(), body.Email, details); err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fiber.StatusCreated, body.Email)
}

// DeleteUser handles DELETE /api/users/:email
// @Summary Delete a user
// @Description Removes the user; purchases are kept. Unknown users succeed.
// @Tags Users
// @Produce json
// @Param email path string true "User email"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /users/{email} [delete]
func (h *TraitsHandler) DeleteUser(c *fiber.Ctx) error {
	email := c.Params("email")
	if err := h.Traits.DeleteUser(c.UserContext(), email); err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fiber.StatusOK, email)
}

// GetPurchaseHistory handles GET /api/users/:email/purchases
// @Summary Purchase history
// @Description Purchases of a user, latest departure first
// @Tags Users
// @Produce json
// @Param email path string true "User email"
// @Success 200 {array} models.Purchase
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /users/{email}/purchases [get]
func (h *TraitsHandler) GetPurchaseHistory(c *fiber.Ctx) error {
	email := c.Params("email")
	if !allowedEmail(c, email) {
		return forbidden(c)
	}

	purchases, err := h.Traits.GetPurchaseHistory(c.UserContext(), email)
	if err != nil {
		return utils.ServiceErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, purchases, fiber.StatusOK)
}
