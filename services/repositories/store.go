package repositories

import (
	"github.com/Calstins/teensha/engine"
	"gorm.io/gorm"
)

// Store is the gorm implementation of engine.Store.
type Store struct {
	*UserRepository
	*ChallengeRepository
	*SubmissionRepository
	*ProgressRepository
	*TransactionRepository
}

var _ engine.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{
		UserRepository:        NewUserRepository(db),
		ChallengeRepository:   NewChallengeRepository(db),
		SubmissionRepository:  NewSubmissionRepository(db),
		ProgressRepository:    NewProgressRepository(db),
		TransactionRepository: NewTransactionRepository(db),
	}
}
