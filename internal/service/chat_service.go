package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neuratalk/internal/domain"
	"neuratalk/internal/llm"
)

// CompletionFailureText reemplaza la respuesta cuando falla la llamada al proveedor.
const CompletionFailureText = "Sorry, there was an error processing your request."

var (
	ErrEmptyMessage      = errors.New("empty message")
	ErrNoActiveChat      = errors.New("no active chat")
	ErrCredentialMissing = errors.New("credential missing")
	ErrSendInProgress    = errors.New("send already in progress")
)

// SendResult describe los dos mensajes que dejo un envio.
type SendResult struct {
	ChatID           string         `json:"chat_id"`
	UserMessage      domain.Message `json:"user_message"`
	AssistantMessage domain.Message `json:"assistant_message"`
	Failed           bool           `json:"failed"`
}

// ChatService orquesta el envio de mensajes contra el proveedor.
type ChatService struct {
	store     *SessionStore
	completer llm.Completer
	logger    *zap.Logger
	loading   atomic.Bool
	now       func() time.Time
}

func NewChatService(store *SessionStore, completer llm.Completer, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		store:     store,
		completer: completer,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Loading indica si hay un envio en curso.
func (s *ChatService) Loading() bool {
	return s.loading.Load()
}

// SendMessage agrega el mensaje del usuario al chat activo, consulta al
// proveedor y registra la respuesta. Un fallo del proveedor queda en el
// transcript como mensaje del asistente y no se devuelve como error.
func (s *ChatService) SendMessage(ctx context.Context, text string) (*SendResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	// El chat se lee con el envio tomado para no perder la respuesta anterior.
	if !s.loading.CompareAndSwap(false, true) {
		return nil, ErrSendInProgress
	}
	defer s.loading.Store(false)

	chat, ok := s.store.ActiveChat()
	if !ok {
		return nil, ErrNoActiveChat
	}
	apiKey, ok := s.store.Credential()
	if !ok {
		return nil, ErrCredentialMissing
	}

	userMsg := s.newMessage(domain.RoleUser, text)
	if !s.store.AppendMessage(chat.ID, userMsg) {
		// El chat fue borrado entre la lectura y el append.
		return nil, ErrNoActiveChat
	}

	payload := BuildCompletionMessages(chat, text, s.store.IncludeHistory(), s.store.IncludeSystemMessage())

	result := &SendResult{ChatID: chat.ID, UserMessage: userMsg}
	reply, err := s.completer.Complete(ctx, llm.CompletionRequest{
		APIKey:   apiKey,
		Model:    chat.Model,
		Messages: payload,
	})
	if err != nil {
		s.logger.Warn("completion failed",
			zap.String("chat_id", chat.ID),
			zap.String("model", chat.Model),
			zap.Error(err),
		)
		reply = CompletionFailureText
		result.Failed = true
	}

	result.AssistantMessage = s.newMessage(domain.RoleAssistant, reply)
	if !s.store.AppendMessage(chat.ID, result.AssistantMessage) {
		s.logger.Info("chat removed before reply arrived", zap.String("chat_id", chat.ID))
	}
	return result, nil
}

func (s *ChatService) newMessage(role, content string) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
}
