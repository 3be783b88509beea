package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"battsim/internal/auth"
	"battsim/internal/chat"
	"battsim/internal/config"
	"battsim/internal/database"
	"battsim/internal/middleware"
	"battsim/internal/models"
	"battsim/internal/notification"
	"battsim/internal/otp"
	"battsim/internal/simulation"
)

// Completer answers chat questions
type Completer interface {
	Ask(ctx context.Context, question string) (string, error)
}

// RateLimiter gates abuse-prone endpoints
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) bool
}

// UserStore is the account persistence boundary
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
}

// ProfileStore is the usage-statistics persistence boundary
type ProfileStore interface {
	GetOrCreate(ctx context.Context, userID uint) (*models.UserProfile, error)
	RecordSimulation(ctx context.Context, userID uint, succeeded bool, at time.Time) error
}

// RunStore is the simulation-history persistence boundary
type RunStore interface {
	Create(ctx context.Context, run *models.SimulationRun) error
	Update(ctx context.Context, run *models.SimulationRun) error
	GetByID(ctx context.Context, id uint) (*models.SimulationRun, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.SimulationRun, error)
}

// TemplateStore is the template persistence boundary
type TemplateStore interface {
	Create(ctx context.Context, tpl *models.SimulationTemplate) error
	ListVisible(ctx context.Context, userID uint) ([]models.SimulationTemplate, error)
}

// ShareStore is the published-result persistence boundary
type ShareStore interface {
	Create(ctx context.Context, share *models.SimulationShare) error
	GetByToken(ctx context.Context, token string) (*models.SimulationShare, error)
}

// OTPStore is the passcode persistence boundary
type OTPStore interface {
	Create(ctx context.Context, code *models.PasswordResetCode) error
	FindByCode(ctx context.Context, userID uint, code int) (*models.PasswordResetCode, error)
	MarkConsumed(ctx context.Context, id uint) error
}

// Stores bundles the persistence boundaries the handlers consume
type Stores struct {
	Users     UserStore
	Profiles  ProfileStore
	Runs      RunStore
	Templates TemplateStore
	Shares    ShareStore
	OTPs      OTPStore
}

// Handler contains all API handlers
type Handler struct {
	config    *config.Config
	logger    *zap.Logger
	stores    Stores
	authSvc   *auth.Service
	runner    *simulation.Runner
	completer Completer
	mailer    notification.Sender
	otpMgr    *otp.Manager
	limiter   RateLimiter
}

// NewHandler creates a new API handler
func NewHandler(
	cfg *config.Config,
	logger *zap.Logger,
	stores Stores,
	authSvc *auth.Service,
	runner *simulation.Runner,
	completer Completer,
	mailer notification.Sender,
	otpMgr *otp.Manager,
	limiter RateLimiter,
) *Handler {
	return &Handler{
		config:    cfg,
		logger:    logger,
		stores:    stores,
		authSvc:   authSvc,
		runner:    runner,
		completer: completer,
		mailer:    mailer,
		otpMgr:    otpMgr,
		limiter:   limiter,
	}
}

// Health returns service health status
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "battsim",
		"timestamp": time.Now().UTC(),
	})
}

// Auth endpoints

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates a new user account
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exists, err := h.stores.Users.Exists(c.Request.Context(), req.Username, req.Email)
	if err != nil {
		h.logger.Error("failed to check existing user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
		return
	}

	passwordHash, err := h.authSvc.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := h.stores.Users.Create(c.Request.Context(), user); err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a token pair
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.stores.Users.GetByUsernameOrEmail(c.Request.Context(), req.Username)
	if err != nil || !user.IsActive || !h.authSvc.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	pair, err := h.authSvc.GenerateTokenPair(user.ID, user.Username)
	if err != nil {
		h.logger.Error("failed to generate tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	if err := h.stores.Users.UpdateLastLogin(c.Request.Context(), user.ID, time.Now().UTC()); err != nil {
		h.logger.Warn("failed to update last login", zap.Error(err))
	}

	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// Refresh exchanges a refresh token for a new token pair
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := h.authSvc.ValidateRefreshToken(req.Refresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	pair, err := h.authSvc.GenerateTokenPair(claims.UserID, claims.Username)
	if err != nil {
		h.logger.Error("failed to generate tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Password reset endpoints

type resetOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"` // username or email
}

// RequestPasswordResetOTP issues and emails a one-time passcode.
// Issuing a new code does not invalidate prior unconsumed codes.
func (h *Handler) RequestPasswordResetOTP(c *gin.Context) {
	var req resetOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.limiter.Allow(c.Request.Context(), "otp:"+c.ClientIP(), h.config.RateLimit.OTPPerHour, time.Hour) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many reset requests"})
		return
	}

	user, err := h.stores.Users.GetByUsernameOrEmail(c.Request.Context(), req.Identifier)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		h.logger.Error("failed to look up account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process reset request"})
		return
	}

	passcode, err := h.otpMgr.Generate()
	if err != nil {
		h.logger.Error("failed to generate passcode", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process reset request"})
		return
	}

	record := &models.PasswordResetCode{
		UserID:    user.ID,
		Code:      passcode.Code,
		ExpiresAt: passcode.ExpiresAt,
	}
	if err := h.stores.OTPs.Create(c.Request.Context(), record); err != nil {
		h.logger.Error("failed to store passcode", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process reset request"})
		return
	}

	if err := h.mailer.Send(user.Email, "Password reset code", notification.PasscodeBody(passcode.String())); err != nil {
		h.logger.Error("failed to deliver passcode email", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to deliver reset code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reset code sent"})
}

type resetPasswordRequest struct {
	Identifier  string `json:"identifier" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ResetPassword consumes a passcode and replaces the account password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submitted, err := strconv.Atoi(req.Code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code does not match"})
		return
	}

	user, err := h.stores.Users.GetByUsernameOrEmail(c.Request.Context(), req.Identifier)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		h.logger.Error("failed to look up account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	record, err := h.stores.OTPs.FindByCode(c.Request.Context(), user.ID, submitted)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Code does not match"})
			return
		}
		h.logger.Error("failed to look up passcode", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	passcode := &otp.Passcode{
		Code:      record.Code,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
		Consumed:  record.Consumed,
	}
	if err := h.otpMgr.Consume(passcode, submitted); err != nil {
		c.JSON(otpErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	// Compare-and-set: a concurrent verification that won the race is
	// reported as re-use.
	if err := h.stores.OTPs.MarkConsumed(c.Request.Context(), record.ID); err != nil {
		if errors.Is(err, database.ErrAlreadyConsumed) {
			c.JSON(http.StatusConflict, gin.H{"error": otp.ErrAlreadyUsed.Error()})
			return
		}
		h.logger.Error("failed to consume passcode", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	passwordHash, err := h.authSvc.HashPassword(req.NewPassword)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}
	if err := h.stores.Users.UpdatePassword(c.Request.Context(), user.ID, passwordHash); err != nil {
		h.logger.Error("failed to update password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

func otpErrorStatus(err error) int {
	switch {
	case errors.Is(err, otp.ErrAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, otp.ErrExpired):
		return http.StatusGone
	default:
		return http.StatusBadRequest
	}
}

// Simulation endpoints

// Simulate runs one simulation job and records it in the history
func (h *Handler) Simulate(c *gin.Context) {
	var req simulation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.UserID(c)
	started := time.Now().UTC()

	paramsJSON, _ := json.Marshal(req.Params)
	run := &models.SimulationRun{
		UserID:       userID,
		BatteryType:  req.BatteryType,
		ModelName:    req.SelectedModel,
		ParameterSet: simulation.ParameterSetFor(simulation.Chemistry(req.BatteryType)),
		Parameters:   datatypes.JSON(paramsJSON),
		Status:       models.RunStatusRunning,
		StartedAt:    &started,
	}
	if err := h.stores.Runs.Create(c.Request.Context(), run); err != nil {
		h.logger.Error("failed to record simulation run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start simulation"})
		return
	}

	result, err := h.runner.Run(c.Request.Context(), req)
	completed := time.Now().UTC()
	if err != nil {
		// Request validation failure: malformed duration or c_rate.
		run.Status = models.RunStatusFailed
		run.CompletedAt = &completed
		run.ErrorMessage = err.Error()
		if updateErr := h.stores.Runs.Update(c.Request.Context(), run); updateErr != nil {
			h.logger.Warn("failed to update simulation run", zap.Error(updateErr))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	succeeded := result.Status == simulation.StatusSuccess
	if succeeded {
		run.Status = models.RunStatusCompleted
		run.Summary = result.Summary
	} else {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = result.Error
	}
	run.CompletedAt = &completed
	run.Duration = completed.Sub(started).Seconds()
	if err := h.stores.Runs.Update(c.Request.Context(), run); err != nil {
		h.logger.Warn("failed to update simulation run", zap.Error(err))
	}

	if _, err := h.stores.Profiles.GetOrCreate(c.Request.Context(), userID); err == nil {
		if err := h.stores.Profiles.RecordSimulation(c.Request.Context(), userID, succeeded, completed); err != nil {
			h.logger.Warn("failed to update usage statistics", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, result)
}

// ListSimulations returns the caller's run history, newest first
func (h *Handler) ListSimulations(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	runs, err := h.stores.Runs.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list simulation runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch simulations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"simulations": runs})
}

// GetSimulation returns one of the caller's runs
func (h *Handler) GetSimulation(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid simulation ID"})
		return
	}

	run, err := h.stores.Runs.GetByID(c.Request.Context(), uint(id))
	if err != nil || run.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Simulation not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// ShareSimulation publishes a run under an opaque token
func (h *Handler) ShareSimulation(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid simulation ID"})
		return
	}

	run, err := h.stores.Runs.GetByID(c.Request.Context(), uint(id))
	if err != nil || run.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Simulation not found"})
		return
	}

	share := &models.SimulationShare{
		SimulationID: run.ID,
		SharedBy:     userID,
		ShareToken:   uuid.NewString(),
	}
	if err := h.stores.Shares.Create(c.Request.Context(), share); err != nil {
		h.logger.Error("failed to create share", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to share simulation"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"share_token": share.ShareToken})
}

// GetShared resolves a share token to its simulation run
func (h *Handler) GetShared(c *gin.Context) {
	share, err := h.stores.Shares.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Share not found"})
		return
	}

	run, err := h.stores.Runs.GetByID(c.Request.Context(), share.SimulationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Simulation not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// BatteryTypes returns the chemistry/variant/parameter-set catalog
func (h *Handler) BatteryTypes(c *gin.Context) {
	catalog := make([]gin.H, 0, 2)
	for _, chem := range simulation.Chemistries() {
		variants := simulation.VariantsFor(chem)
		names := make([]string, len(variants))
		for i, v := range variants {
			names[i] = string(v)
		}
		catalog = append(catalog, gin.H{
			"name":             string(chem),
			"available_models": names,
			"parameter_set":    simulation.ParameterSetFor(chem),
		})
	}
	c.JSON(http.StatusOK, gin.H{"battery_types": catalog})
}

// Template endpoints

type createTemplateRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	BatteryType string                 `json:"battery_type" binding:"required"`
	ModelName   string                 `json:"model_name" binding:"required"`
	Parameters  map[string]interface{} `json:"parameters"`
	IsPublic    bool                   `json:"is_public"`
}

// CreateTemplate stores a reusable simulation configuration
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := simulation.SelectModel(req.BatteryType, req.ModelName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.UserID(c)
	paramsJSON, _ := json.Marshal(req.Parameters)
	tpl := &models.SimulationTemplate{
		Name:        req.Name,
		Description: req.Description,
		BatteryType: req.BatteryType,
		ModelName:   req.ModelName,
		Parameters:  datatypes.JSON(paramsJSON),
		IsPublic:    req.IsPublic,
		CreatedBy:   userID,
	}
	if err := h.stores.Templates.Create(c.Request.Context(), tpl); err != nil {
		h.logger.Error("failed to create template", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// ListTemplates returns templates visible to the caller
func (h *Handler) ListTemplates(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	templates, err := h.stores.Templates.ListVisible(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list templates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch templates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// GetProfile returns the caller's preferences and usage statistics
func (h *Handler) GetProfile(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	profile, err := h.stores.Profiles.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to fetch profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":      profile,
		"success_rate": profile.SuccessRate(),
	})
}

// Chat relays a question to the AI-completion collaborator

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat forwards the caller's question and relays the answer
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.UserID(c)
	key := "chat:" + strconv.FormatUint(uint64(userID), 10)
	if !h.limiter.Allow(c.Request.Context(), key, h.config.RateLimit.ChatPerMinute, h.config.RateLimit.Window) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many chat requests"})
		return
	}

	answer, err := h.completer.Ask(c.Request.Context(), req.Message)
	if err != nil {
		c.JSON(chatErrorStatus(err), gin.H{"error": chatErrorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}

func chatErrorStatus(err error) int {
	switch {
	case errors.Is(err, chat.ErrProviderAuth):
		return http.StatusUnauthorized
	case errors.Is(err, chat.ErrProviderRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, chat.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// chatErrorMessage keeps provider-internal detail out of responses
func chatErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrProviderAuth):
		return "AI service authentication failed"
	case errors.Is(err, chat.ErrProviderRateLimited):
		return "AI service rate limit exceeded"
	case errors.Is(err, chat.ErrProviderUnavailable):
		return "AI service unavailable"
	default:
		return "AI service error"
	}
}
