package gormstore

import (
	"context"

	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories"
	"gorm.io/gorm"
)

type IssuedNumberStore struct {
	db *gorm.DB
}

func NewIssuedNumberStore(db *gorm.DB) *IssuedNumberStore {
	return &IssuedNumberStore{db: db}
}

var _ repositories.IssuedNumberRepository = (*IssuedNumberStore)(nil)

func (s *IssuedNumberStore) HighestNumber(ctx context.Context, prefix string) (string, error) {
	return highestNumber(s.db.WithContext(ctx), &models.IssuedNumber{}, "number", prefix)
}

func (s *IssuedNumberStore) Insert(ctx context.Context, n *models.IssuedNumber) error {
	err := s.db.WithContext(ctx).Create(n).Error
	return duplicate(err, "issued number", "number", n.Number)
}
