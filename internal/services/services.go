package services

import (
	"context"

	"gorm.io/gorm"

	"forgeline/internal/repositories"
)

// Services aggregates all domain services backed by the database.
type Services struct {
	Sessions       SessionStore
	Specifications SpecificationService
}

// NewServices constructs the service container using repositories backed by db.
func NewServices(db *gorm.DB) *Services {
	sessionRepo := repositories.NewSessionRepository(db)
	resultRepo := repositories.NewFileResultRepository(db)
	specRepo := repositories.NewSpecificationRepository(db)

	return &Services{
		Sessions:       NewSessionStore(sessionRepo, resultRepo),
		Specifications: NewSpecificationService(specRepo),
	}
}

// Startup propagates the application context to services that hold one.
func (s *Services) Startup(ctx context.Context) {
	s.Sessions.Startup(ctx)
	s.Specifications.Startup(ctx)
}
