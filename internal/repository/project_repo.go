package repository

import (
	"errors"

	"affily/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidAPIKey = errors.New("invalid api key")

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create persists a project with its whitelist and conversion points in one
// transaction. apiKey is the plaintext key; only its bcrypt hash is stored.
func (r *ProjectRepository) Create(p *models.Project, apiKey string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.APIKeyHash = string(hash)
	return r.db.Create(p).Error
}

func (r *ProjectRepository) GetByID(id string) (*models.Project, error) {
	var p models.Project
	err := r.db.
		Preload("WhitelistEntries").
		Preload("ConversionPoints.Tiers").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) ListByOwner(ownerAddress string) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.
		Preload("WhitelistEntries").
		Preload("ConversionPoints.Tiers").
		Where("owner_address = ?", ownerAddress).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *ProjectRepository) List() ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Order("created_at DESC").Find(&projects).Error
	return projects, err
}

// UpdateSettings applies targeted field updates; callers filter to safe fields.
func (r *ProjectRepository) UpdateSettings(id string, updates map[string]interface{}) error {
	return r.db.Model(&models.Project{}).Where("id = ?", id).Updates(updates).Error
}

// ValidateAPIKey compares the presented key against the project's stored hash.
func (r *ProjectRepository) ValidateAPIKey(projectID, apiKey string) error {
	var p models.Project
	if err := r.db.Select("api_key_hash").Where("id = ?", projectID).First(&p).Error; err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.APIKeyHash), []byte(apiKey)) != nil {
		return ErrInvalidAPIKey
	}
	return nil
}

// GetConversionPoint loads one conversion point of a project by its public id.
func (r *ProjectRepository) GetConversionPoint(projectID, pointID string) (*models.ConversionPoint, error) {
	var point models.ConversionPoint
	err := r.db.
		Preload("Tiers").
		Where("project_id = ? AND point_id = ?", projectID, pointID).
		First(&point).Error
	if err != nil {
		return nil, err
	}
	return &point, nil
}
