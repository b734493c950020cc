package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roleplay-agent-be/internal/pkg/logger"
	"roleplay-agent-be/internal/websocket"
	"roleplay-agent-be/pkg/events"
	pktNats "roleplay-agent-be/pkg/nats"

	"github.com/google/uuid"
)

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notice websocket.Notice)
	Broadcast(notice websocket.Notice)
}

// NotificationService relays bus events to connected clients so a user's
// other devices learn about turns and deletions as they commit.
type NotificationService struct {
	subscriber *pktNats.Subscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("events.>", "turn-notify-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), "events.")
	payload := event.Payload()

	threadId, _ := payload["thread_id"].(string)
	notice := websocket.Notice{
		Type:      typeCode,
		ThreadId:  threadId,
		Data:      payload,
		CreatedAt: time.Now(),
	}

	switch typeCode {
	case events.TypeTurnPersisted:
		character, _ := payload["character_name"].(string)
		notice.Message = fmt.Sprintf("%s replied", character)
	case events.TypeThreadDeleted:
		notice.Message = "Thread deleted"
	case events.TypePassageEmbedded:
		// Corpus maintenance, of no interest to chat clients.
		return nil
	}

	uidStr, ok := payload["user_id"].(string)
	if !ok {
		s.logger.Warn("NotificationService", fmt.Sprintf("No user_id in payload for event %s", typeCode), nil)
		return nil
	}
	uid, err := uuid.Parse(uidStr)
	if err != nil {
		s.logger.Warn("NotificationService", "Malformed user_id in event payload", map[string]interface{}{"user_id": uidStr})
		return nil
	}

	if s.delivery != nil {
		s.delivery.Send(uid, notice)
	}
	return nil
}
