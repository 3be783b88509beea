package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"battsim/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrAlreadyConsumed is returned when an OTP compare-and-set finds the
// code already marked consumed
var ErrAlreadyConsumed = errors.New("code already consumed")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// UserRepository handles account records
type UserRepository struct {
	db *gorm.DB
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID fetches a user by primary key
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByUsernameOrEmail fetches a user matching either identifier
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Exists reports whether a username or email is already registered
func (r *UserRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

// UpdateLastLogin stamps the last successful login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login", at).Error
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

// ProfileRepository handles user simulation profiles
type ProfileRepository struct {
	db *gorm.DB
}

// GetOrCreate fetches the profile for a user, creating it on first access
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).
		Where(models.UserProfile{UserID: userID}).
		FirstOrCreate(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// RecordSimulation updates usage counters after a simulation run
func (r *ProfileRepository) RecordSimulation(ctx context.Context, userID uint, succeeded bool, at time.Time) error {
	updates := map[string]interface{}{
		"total_simulations": gorm.Expr("total_simulations + 1"),
		"last_simulation":   at,
	}
	if succeeded {
		updates["successful_simulations"] = gorm.Expr("successful_simulations + 1")
	}
	return r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

// SimulationRunRepository handles simulation history records
type SimulationRunRepository struct {
	db *gorm.DB
}

// Create inserts a new simulation run record
func (r *SimulationRunRepository) Create(ctx context.Context, run *models.SimulationRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update persists changes to an existing run record
func (r *SimulationRunRepository) Update(ctx context.Context, run *models.SimulationRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID fetches a run by primary key
func (r *SimulationRunRepository) GetByID(ctx context.Context, id uint) (*models.SimulationRun, error) {
	var run models.SimulationRun
	if err := r.db.WithContext(ctx).First(&run, id).Error; err != nil {
		return nil, translate(err)
	}
	return &run, nil
}

// ListByUser returns a user's runs, newest first
func (r *SimulationRunRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.SimulationRun, error) {
	var runs []models.SimulationRun
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error
	return runs, err
}

// TemplateRepository handles simulation templates
type TemplateRepository struct {
	db *gorm.DB
}

// Create inserts a new template
func (r *TemplateRepository) Create(ctx context.Context, tpl *models.SimulationTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

// ListVisible returns templates owned by the user plus public ones
func (r *TemplateRepository) ListVisible(ctx context.Context, userID uint) ([]models.SimulationTemplate, error) {
	var templates []models.SimulationTemplate
	err := r.db.WithContext(ctx).
		Where("created_by = ? OR is_public = ?", userID, true).
		Order("created_at DESC").
		Find(&templates).Error
	return templates, err
}

// ShareRepository handles published simulation results
type ShareRepository struct {
	db *gorm.DB
}

// Create inserts a new share record
func (r *ShareRepository) Create(ctx context.Context, share *models.SimulationShare) error {
	return r.db.WithContext(ctx).Create(share).Error
}

// GetByToken resolves a share token and increments its view counter
func (r *ShareRepository) GetByToken(ctx context.Context, token string) (*models.SimulationShare, error) {
	var share models.SimulationShare
	err := r.db.WithContext(ctx).
		Where("share_token = ?", token).
		First(&share).Error
	if err != nil {
		return nil, translate(err)
	}
	r.db.WithContext(ctx).Model(&share).
		Update("view_count", gorm.Expr("view_count + 1"))
	return &share, nil
}

// OTPRepository handles one-time passcode records
type OTPRepository struct {
	db *gorm.DB
}

// Create inserts a new passcode record. Issuing a new code does not
// invalidate prior unconsumed codes.
func (r *OTPRepository) Create(ctx context.Context, code *models.PasswordResetCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// FindByCode returns the best matching record for a submitted value:
// unconsumed before consumed, then freshest expiry first. Several codes
// can be outstanding for one user because reissue never invalidates.
func (r *OTPRepository) FindByCode(ctx context.Context, userID uint, code int) (*models.PasswordResetCode, error) {
	var record models.PasswordResetCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND code = ?", userID, code).
		Order("consumed ASC, expires_at DESC").
		First(&record).Error
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// MarkConsumed flips the consumed flag with a compare-and-set so two
// concurrent verification attempts cannot both succeed.
func (r *OTPRepository) MarkConsumed(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.PasswordResetCode{}).
		Where("id = ? AND consumed = ?", id, false).
		Update("consumed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyConsumed
	}
	return nil
}

// UsageRepository handles API usage records
type UsageRepository struct {
	db *gorm.DB
}

// Record inserts one usage row
func (r *UsageRepository) Record(ctx context.Context, usage *models.APIUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}
