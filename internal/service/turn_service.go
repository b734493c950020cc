package service

import (
	"context"
	"fmt"
	"time"

	"roleplay-agent-be/internal/constant"
	"roleplay-agent-be/internal/dto"
	"roleplay-agent-be/internal/entity"
	"roleplay-agent-be/internal/pkg/logger"
	"roleplay-agent-be/internal/repository/memory"
	"roleplay-agent-be/internal/repository/specification"
	"roleplay-agent-be/internal/repository/unitofwork"
	"roleplay-agent-be/pkg/agent"
	"roleplay-agent-be/pkg/events"
	pktNats "roleplay-agent-be/pkg/nats"
	"roleplay-agent-be/pkg/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ITurnService defines the conversational turn service interface
type ITurnService interface {
	SendTurn(ctx context.Context, userId uuid.UUID, request *dto.SendTurnRequest) (*dto.SendTurnResponse, error)
	StreamTurn(ctx context.Context, userId uuid.UUID, request *dto.SendTurnRequest, eventsOut chan<- agent.StreamEvent) (*dto.SendTurnResponse, error)
	GetAllThreads(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllThreadsResponse, error)
	GetThreadHistory(ctx context.Context, userId uuid.UUID, threadId uuid.UUID) ([]*dto.GetThreadHistoryResponse, error)
	DeleteThread(ctx context.Context, userId uuid.UUID, request *dto.DeleteThreadRequest) error
}

type turnService struct {
	uowFactory     unitofwork.RepositoryFactory
	executor       *agent.Executor
	sessionRepo    *memory.SessionRepository
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewTurnService(
	uowFactory unitofwork.RepositoryFactory,
	executor *agent.Executor,
	sessionRepo *memory.SessionRepository,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) ITurnService {
	return &turnService{
		uowFactory:     uowFactory,
		executor:       executor,
		sessionRepo:    sessionRepo,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

// resolveThread loads an existing thread (verifying ownership) or lazily
// creates one bound to the requested character.
func (s *turnService) resolveThread(ctx context.Context, userId uuid.UUID, request *dto.SendTurnRequest) (*entity.Thread, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if request.ThreadId != nil {
		thread, err := uow.ThreadRepository().FindOne(ctx,
			specification.ByID{ID: *request.ThreadId},
			specification.ByUserId{UserId: userId},
		)
		if err != nil {
			return nil, err
		}
		if thread == nil {
			return nil, fmt.Errorf("thread %s: %w", request.ThreadId, gorm.ErrRecordNotFound)
		}
		return thread, nil
	}

	thread := &entity.Thread{
		Id:            uuid.New(),
		UserId:        userId,
		CharacterName: request.CharacterName,
		Title:         threadTitle(request.Text),
		CreatedAt:     time.Now(),
	}
	if err := uow.ThreadRepository().Create(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

func threadTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= constant.ThreadTitleMaxLen {
		return text
	}
	return string(runes[:constant.ThreadTitleMaxLen])
}

// persistTurnMessages appends the user and assistant messages to the thread
// transcript in one transaction. The checkpoint is the source of truth; the
// transcript is the queryable projection of it.
func (s *turnService) persistTurnMessages(ctx context.Context, thread *entity.Thread, userText, reply string) (*entity.ThreadMessage, *entity.ThreadMessage, error) {
	now := time.Now()
	sent := &entity.ThreadMessage{
		Id:        uuid.New(),
		ThreadId:  thread.Id,
		Role:      constant.ThreadMessageRoleUser,
		Text:      userText,
		CreatedAt: now,
	}
	replyMsg := &entity.ThreadMessage{
		Id:        uuid.New(),
		ThreadId:  thread.Id,
		Role:      constant.ThreadMessageRoleAssistant,
		Text:      reply,
		CreatedAt: now.Add(time.Millisecond),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()

	if err := uow.ThreadMessageRepository().CreateBulk(ctx, []*entity.ThreadMessage{sent, replyMsg}); err != nil {
		return nil, nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, nil, err
	}
	return sent, replyMsg, nil
}

func (s *turnService) publishTurnPersisted(ctx context.Context, userId uuid.UUID, thread *entity.Thread) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.NewTurnPersistedEvent(userId.String(), thread.Id.String(), thread.CharacterName)
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("TurnService", "Failed to publish turn persisted event", map[string]interface{}{
			"thread_id": thread.Id.String(),
			"error":     err.Error(),
		})
	}
}

func (s *turnService) markSession(thread *entity.Thread, userId uuid.UUID, state, userText string) {
	s.sessionRepo.Save(&store.Session{
		ID:            thread.Id.String(),
		UserID:        userId.String(),
		CharacterName: thread.CharacterName,
		State:         state,
		LastTurnID:    uuid.NewString(),
		LastUserText:  userText,
	})
}

func (s *turnService) buildResponse(thread *entity.Thread, sent, reply *entity.ThreadMessage, state *agent.State) *dto.SendTurnResponse {
	return &dto.SendTurnResponse{
		ThreadId:    thread.Id,
		ThreadTitle: thread.Title,
		Sent: &dto.TurnMessageDTO{
			Id:        sent.Id,
			Role:      sent.Role,
			Text:      sent.Text,
			CreatedAt: sent.CreatedAt,
		},
		Reply: &dto.TurnMessageDTO{
			Id:        reply.Id,
			Role:      reply.Role,
			Text:      reply.Text,
			CreatedAt: reply.CreatedAt,
		},
		Reflection: state.Reflection,
	}
}

func (s *turnService) SendTurn(ctx context.Context, userId uuid.UUID, request *dto.SendTurnRequest) (*dto.SendTurnResponse, error) {
	thread, err := s.resolveThread(ctx, userId, request)
	if err != nil {
		return nil, err
	}

	s.markSession(thread, userId, store.StateStreaming, request.Text)
	defer s.markSession(thread, userId, store.StateIdle, request.Text)

	state, err := s.executor.Run(ctx, thread.Id.String(), thread.CharacterName, request.Text)
	if err != nil {
		return nil, err
	}

	sent, reply, err := s.persistTurnMessages(ctx, thread, request.Text, state.Response)
	if err != nil {
		// The checkpoint committed but the transcript did not; history reads
		// will lag the checkpoint until the next successful turn.
		s.logger.Error("TurnService", "Turn checkpointed but transcript append failed", map[string]interface{}{
			"thread_id": thread.Id.String(),
			"error":     err.Error(),
		})
		return nil, err
	}

	s.publishTurnPersisted(ctx, userId, thread)
	return s.buildResponse(thread, sent, reply, state), nil
}

// StreamTurn runs one turn forwarding stream events to eventsOut. The
// channel is always closed before returning. A consumer disconnect persists
// nothing; the caller sees ctx.Err.
func (s *turnService) StreamTurn(ctx context.Context, userId uuid.UUID, request *dto.SendTurnRequest, eventsOut chan<- agent.StreamEvent) (*dto.SendTurnResponse, error) {
	thread, err := s.resolveThread(ctx, userId, request)
	if err != nil {
		close(eventsOut)
		return nil, err
	}

	s.markSession(thread, userId, store.StateStreaming, request.Text)
	defer s.markSession(thread, userId, store.StateIdle, request.Text)

	state, err := s.executor.RunStream(ctx, thread.Id.String(), thread.CharacterName, request.Text, eventsOut)
	if err != nil {
		return nil, err
	}

	sent, reply, err := s.persistTurnMessages(ctx, thread, request.Text, state.Response)
	if err != nil {
		s.logger.Error("TurnService", "Turn checkpointed but transcript append failed", map[string]interface{}{
			"thread_id": thread.Id.String(),
			"error":     err.Error(),
		})
		return nil, err
	}

	s.publishTurnPersisted(ctx, userId, thread)
	return s.buildResponse(thread, sent, reply, state), nil
}

func (s *turnService) GetAllThreads(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllThreadsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	threads, err := uow.ThreadRepository().FindAll(ctx,
		specification.ByUserId{UserId: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.GetAllThreadsResponse, len(threads))
	for i, t := range threads {
		result[i] = &dto.GetAllThreadsResponse{
			Id:            t.Id,
			CharacterName: t.CharacterName,
			Title:         t.Title,
			CreatedAt:     t.CreatedAt,
			UpdatedAt:     t.UpdatedAt,
		}
	}
	return result, nil
}

func (s *turnService) GetThreadHistory(ctx context.Context, userId uuid.UUID, threadId uuid.UUID) ([]*dto.GetThreadHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ThreadRepository().FindOne(ctx,
		specification.ByID{ID: threadId},
		specification.ByUserId{UserId: userId},
	)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, fmt.Errorf("thread %s: %w", threadId, gorm.ErrRecordNotFound)
	}

	messages, err := uow.ThreadMessageRepository().FindAll(ctx,
		specification.ByThreadId{ThreadId: threadId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.GetThreadHistoryResponse, len(messages))
	for i, m := range messages {
		result[i] = &dto.GetThreadHistoryResponse{
			Id:        m.Id,
			Role:      m.Role,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		}
	}
	return result, nil
}

// DeleteThread removes the thread, its transcript and every checkpoint row
// in one transaction. Thread rows soft-delete; checkpoint rows hard-delete
// so no orphaned state survives.
func (s *turnService) DeleteThread(ctx context.Context, userId uuid.UUID, request *dto.DeleteThreadRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ThreadRepository().FindOne(ctx,
		specification.ByID{ID: request.ThreadId},
		specification.ByUserId{UserId: userId},
	)
	if err != nil {
		return err
	}
	if thread == nil {
		return fmt.Errorf("thread %s: %w", request.ThreadId, gorm.ErrRecordNotFound)
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ThreadRepository().Delete(ctx, request.ThreadId); err != nil {
		return err
	}
	if err := uow.ThreadMessageRepository().DeleteByThreadId(ctx, request.ThreadId); err != nil {
		return err
	}
	if err := uow.CheckpointRepository().DeleteByThreadId(ctx, request.ThreadId); err != nil {
		return err
	}
	if err := uow.CheckpointWriteRepository().DeleteByThreadId(ctx, request.ThreadId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	s.sessionRepo.Delete(request.ThreadId.String())

	if s.eventPublisher != nil {
		evt := events.NewThreadDeletedEvent(userId.String(), request.ThreadId.String())
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("TurnService", "Failed to publish thread deleted event", map[string]interface{}{
				"thread_id": request.ThreadId.String(),
				"error":     err.Error(),
			})
		}
	}

	return nil
}
