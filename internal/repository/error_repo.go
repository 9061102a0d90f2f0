package repository

import (
	"encoding/json"
	"log"

	"affily/internal/models"

	"gorm.io/gorm"
)

type ErrorLogRepository struct {
	db *gorm.DB
}

func NewErrorLogRepository(db *gorm.DB) *ErrorLogRepository {
	return &ErrorLogRepository{db: db}
}

// Log writes a structured error record. metadata is marshalled to JSON; a
// marshal failure degrades to an empty object rather than losing the record.
func (r *ErrorLogRepository) Log(errorType, message string, metadata interface{}) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		log.Printf("[errorlog] metadata marshal failed: %v", err)
		raw = []byte("{}")
	}
	return r.db.Create(&models.ErrorLog{
		ErrorType: errorType,
		Message:   message,
		Metadata:  string(raw),
	}).Error
}

func (r *ErrorLogRepository) ListByType(errorType string) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	err := r.db.Where("error_type = ?", errorType).Order("created_at DESC").Find(&logs).Error
	return logs, err
}
