package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/libracore/circulation-service/pkg/kafka"
	"github.com/libracore/circulation-service/stats/internal/model"
	statsRepo "github.com/libracore/circulation-service/stats/internal/repository"
)

type Service struct {
	log  *zap.Logger
	repo statsRepo.Repository
}

func NewService(repo statsRepo.Repository, log *zap.Logger) *Service {
	return &Service{
		log:  log,
		repo: repo,
	}
}

// GetStats returns the transaction-history rollup.
func (s *Service) GetStats(ctx context.Context) (model.StatsInfo, error) {
	return s.repo.GetStats(ctx)
}

// Record is used by the kafka consumer.
func (s *Service) Record(ctx context.Context, event kafka.EventCirculation) error {
	return s.repo.Record(ctx, event)
}
