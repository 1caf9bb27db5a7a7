package notes

import (
	"context"
	"log/slog"
	"strings"

	"spt3g-viewer/internal/domain"
)

// Service is the write path for notes used by the UI, API and CLI.
type Service struct {
	repo   domain.NotesRepository
	logger *slog.Logger
}

// NewService creates a Service over repo.
func NewService(repo domain.NotesRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get returns the note for source, or "" when none exists.
func (s *Service) Get(source string) string {
	text, _ := s.repo.Get(source)
	return text
}

// All returns a snapshot of every note.
func (s *Service) All() map[string]string {
	return s.repo.All()
}

// Save stores text for source and flushes synchronously. When the flush
// fails the edit is kept in memory and a *domain.PersistenceError is returned.
func (s *Service) Save(ctx context.Context, source, text string) error {
	if strings.TrimSpace(source) == "" {
		return domain.ErrValidation("source name is required")
	}

	s.repo.Set(source, text)
	if err := s.repo.Flush(ctx); err != nil {
		s.logger.Warn("note flush failed", "source", source, "error", err)
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	s.logger.Debug("note saved", "source", source, "length", len(text))
	return nil
}
