package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/service"
)

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRequest is the HTTP request body for user registration.
type RegisterRequest struct {
	Username   string          `json:"username"`
	FirstName  string          `json:"first_name"`
	MiddleName string          `json:"middle_name"`
	LastName   string          `json:"last_name"`
	Role       string          `json:"role"`
	IsStaff    bool            `json:"is_staff"`
	Balance    decimal.Decimal `json:"balance"`
}

// BalanceRequest is the HTTP request body for a balance top-up.
type BalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// UserResponse is the HTTP response for user data.
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	IsStaff   bool   `json:"is_staff"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName(),
		Role:      string(u.Role),
		IsStaff:   u.IsStaff,
		Balance:   u.Balance.StringFixed(2),
		CreatedAt: formatTime(u.CreatedAt),
	}
}

// Register handles POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, err := h.users.Register(c.Request.Context(), actor, service.RegisterUserInput{
		Username:   req.Username,
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Role:       domain.Role(req.Role),
		IsStaff:    req.IsStaff,
		Balance:    req.Balance,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toUserResponse(user))
}

// GetAll handles GET /v1/users?role=
func (h *UserHandler) GetAll(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	users, err := h.users.ListUsers(c.Request.Context(), actor, domain.Role(c.Query("role")))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, toUserResponse(u))
	}
	c.JSON(http.StatusOK, response)
}

// GetUser handles GET /v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toUserResponse(user))
}

// AddBalance handles POST /v1/users/:id/balance
func (h *UserHandler) AddBalance(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	user, err := h.users.TopUp(c.Request.Context(), actor, c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toUserResponse(user))
}
