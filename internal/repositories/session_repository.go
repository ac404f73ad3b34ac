package repositories

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"forgeline/internal/models"
)

// ErrStatusConflict is returned when a compare-and-swap status transition
// finds the session in a different state than expected.
var ErrStatusConflict = errors.New("session status conflict")

type SessionRepository interface {
	Create(session *models.Session) error
	GetByID(id string) (*models.Session, error)
	List(limit int) ([]models.Session, error)
	// TransitionStatus atomically moves the session from one status to
	// another. It fails with ErrStatusConflict if the stored status does not
	// match from, which keeps failed sessions terminal.
	TransitionStatus(id string, from, to models.SessionStatus) error
	SetManifest(id string, manifestJSON string) error
	// MarkFailed records the error and moves the session to failed unless it
	// is already in a terminal state.
	MarkFailed(id string, message string) error
	MarkCompleted(id string) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	return r.db.Create(session).Error
}

func (r *sessionRepository) GetByID(id string) (*models.Session, error) {
	var sess models.Session
	res := r.db.Where("id = ?", id).Take(&sess)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &sess, nil
}

func (r *sessionRepository) List(limit int) ([]models.Session, error) {
	var sessions []models.Session
	q := r.db.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepository) TransitionStatus(id string, from, to models.SessionStatus) error {
	res := r.db.Model(&models.Session{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transition %s -> %s for session %s: %w", from, to, id, ErrStatusConflict)
	}
	return nil
}

func (r *sessionRepository) SetManifest(id string, manifestJSON string) error {
	return r.db.Model(&models.Session{}).
		Where("id = ?", id).
		Update("manifest_json", manifestJSON).Error
}

func (r *sessionRepository) MarkFailed(id string, message string) error {
	now := time.Now()
	res := r.db.Model(&models.Session{}).
		Where("id = ? AND status NOT IN ?", id, []string{string(models.SessionCompleted), string(models.SessionFailed)}).
		Updates(map[string]interface{}{
			"status":        string(models.SessionFailed),
			"error_message": message,
			"completed_at":  &now,
		})
	return res.Error
}

func (r *sessionRepository) MarkCompleted(id string) error {
	now := time.Now()
	res := r.db.Model(&models.Session{}).
		Where("id = ? AND status = ?", id, string(models.SessionAggregating)).
		Updates(map[string]interface{}{
			"status":       string(models.SessionCompleted),
			"completed_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("complete session %s: %w", id, ErrStatusConflict)
	}
	return nil
}
