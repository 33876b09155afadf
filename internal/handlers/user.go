package handlers

import (
	"encoding/json"
	"net/http"

	"skill-barter-backend/internal/middleware"
	"skill-barter-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	DisplayName string   `json:"display_name"`
	Skills      []string `json:"skills"`
}

// AddSkillsRequest represents the request body for adding owned skills
type AddSkillsRequest struct {
	Skills []string `json:"skills"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.CreateUser(ctx, req.DisplayName, req.Skills)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("display_name", user.DisplayName).
		Msg("User created")

	respondJSON(w, http.StatusCreated, user)
}

// AddSkills handles POST /api/v1/users/me/skills
func (h *UserHandler) AddSkills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req AddSkillsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.AddSkills(ctx, userID, req.Skills)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Strs("skills", req.Skills).
		Msg("Skills added")

	respondJSON(w, http.StatusOK, user)
}
