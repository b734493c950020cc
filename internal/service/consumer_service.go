package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"roleplay-agent-be/internal/dto"
	"roleplay-agent-be/internal/entity"
	"roleplay-agent-be/internal/repository/specification"
	"roleplay-agent-be/internal/repository/unitofwork"
	"roleplay-agent-be/pkg/embedding"
	"roleplay-agent-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Passage chunking bounds. A passage longer than one chunk is split and each
// chunk becomes its own row so retrieval stays within embedding context
// limits.
const (
	passageChunkSize    = 1500
	passageChunkOverlap = 200
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedPassageMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Processing embedding for PassageId: %s", payload.PassageId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	passage, err := uow.PersonaPassageRepository().FindOne(ctx, specification.ByID{ID: payload.PassageId})
	if err != nil {
		log.Printf("[ERROR] Failed to get passage %s: %v", payload.PassageId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if passage == nil {
		log.Printf("[ERROR] Passage not found: %s", payload.PassageId)
		msg.Ack() // Passage deleted? Ack.
		return
	}

	chunks := utils.SplitText(passage.Content, passageChunkSize, passageChunkOverlap)
	log.Printf("[INFO] Passage split into %d chunks", len(chunks))

	embeddings := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vec, err := cs.embeddingProvider.Generate(ctx, chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			log.Printf("[ERROR] Failed to generate embedding for chunk %d of passage %s: %v", i, payload.PassageId, err)
			msg.Nack()
			return
		}
		embeddings[i] = vec
	}

	// The original row keeps the first chunk; extra chunks become sibling
	// rows sharing the same character tags and topic.
	passage.Content = chunks[0]
	passage.Embedding = embeddings[0]

	var siblings []*entity.PersonaPassage
	for i := 1; i < len(chunks); i++ {
		siblings = append(siblings, &entity.PersonaPassage{
			Id:         uuid.New(),
			Characters: passage.Characters,
			Content:    chunks[i],
			SourceType: passage.SourceType,
			Topic:      passage.Topic,
			Embedding:  embeddings[i],
			CreatedAt:  time.Now(),
		})
	}

	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.PersonaPassageRepository().Update(ctx, passage); err != nil {
		log.Printf("[ERROR] Failed to update passage: %v", err)
		msg.Nack()
		return
	}
	if len(siblings) > 0 {
		if err := uow.PersonaPassageRepository().CreateBulk(ctx, siblings); err != nil {
			log.Printf("[ERROR] Failed to create chunk passages: %v", err)
			msg.Nack()
			return
		}
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit transaction: %v", err)
		msg.Nack()
		return
	}

	log.Printf("[SUCCESS] Passage embedded: %d chunks for PassageId: %s", len(chunks), payload.PassageId)
	msg.Ack()
}
