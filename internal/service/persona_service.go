package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roleplay-agent-be/internal/dto"
	"roleplay-agent-be/internal/entity"
	"roleplay-agent-be/internal/pkg/logger"
	"roleplay-agent-be/internal/repository/specification"
	"roleplay-agent-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IPersonaService manages the background-knowledge corpus characters draw
// from during retrieval.
type IPersonaService interface {
	IngestPassages(ctx context.Context, request *dto.IngestPassagesRequest) (*dto.IngestPassagesResponse, error)
	GetPassages(ctx context.Context, characterName string) ([]*dto.GetPassageResponse, error)
	DeletePassage(ctx context.Context, id uuid.UUID) error
}

type personaService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewPersonaService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	log logger.ILogger,
) IPersonaService {
	return &personaService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		logger:           log,
	}
}

// IngestPassages stores passages without embeddings and queues each for
// async embedding. Rows are committed first so a consumer crash can never
// lose accepted content, only delay its indexing.
func (s *personaService) IngestPassages(ctx context.Context, request *dto.IngestPassagesRequest) (*dto.IngestPassagesResponse, error) {
	passages := make([]*entity.PersonaPassage, len(request.Passages))
	for i, p := range request.Passages {
		passages[i] = &entity.PersonaPassage{
			Id:         uuid.New(),
			Characters: p.Characters,
			Content:    p.Content,
			SourceType: p.SourceType,
			Topic:      p.Topic,
			CreatedAt:  time.Now(),
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.PersonaPassageRepository().CreateBulk(ctx, passages); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	queued := 0
	for _, p := range passages {
		payload, err := json.Marshal(dto.PublishEmbedPassageMessage{
			PassageId: p.Id,
			Content:   p.Content,
		})
		if err != nil {
			s.logger.Error("PersonaService", "Failed to marshal embed message", map[string]interface{}{
				"passage_id": p.Id.String(),
				"error":      err.Error(),
			})
			continue
		}
		if err := s.publisherService.Publish(ctx, payload); err != nil {
			s.logger.Error("PersonaService", "Failed to queue passage for embedding", map[string]interface{}{
				"passage_id": p.Id.String(),
				"error":      err.Error(),
			})
			continue
		}
		queued++
	}

	return &dto.IngestPassagesResponse{Queued: queued}, nil
}

func (s *personaService) GetPassages(ctx context.Context, characterName string) ([]*dto.GetPassageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	passages, err := uow.PersonaPassageRepository().FindAll(ctx,
		specification.FilterByCharacter{CharacterName: characterName},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.GetPassageResponse, len(passages))
	for i, p := range passages {
		result[i] = &dto.GetPassageResponse{
			Id:         p.Id,
			Characters: p.Characters,
			Content:    p.Content,
			SourceType: p.SourceType,
			Topic:      p.Topic,
			Embedded:   len(p.Embedding) > 0,
			CreatedAt:  p.CreatedAt,
		}
	}
	return result, nil
}

func (s *personaService) DeletePassage(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	passage, err := uow.PersonaPassageRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if passage == nil {
		return fmt.Errorf("passage %s: %w", id, gorm.ErrRecordNotFound)
	}

	return uow.PersonaPassageRepository().Delete(ctx, id)
}
