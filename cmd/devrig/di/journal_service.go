package di

import (
	"github.com/samber/do/v2"

	"github.com/devrig/devrig/internal/journal"
)

// JournalService wraps the provisioning event journal.
type JournalService struct {
	Journal *journal.Journal
}

// NewJournal creates the journal with the default ring capacity.
func NewJournal(_ do.Injector) (*JournalService, error) {
	return &JournalService{Journal: journal.New(journal.DefaultCapacity)}, nil
}

// Shutdown implements do.Shutdowner, completing any live subscriptions.
func (s *JournalService) Shutdown() error {
	s.Journal.Close()
	return nil
}
