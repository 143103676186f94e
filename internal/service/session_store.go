package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"neuratalk/internal/domain"
)

// InitialChatTitle es el titulo del primer chat de una coleccion vacia.
const InitialChatTitle = "New Chat"

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrUnknownModel = errors.New("unknown model")
)

// SessionStore es el unico dueño del estado de chats y ajustes globales.
// Todas las operaciones son atomicas; las lecturas devuelven copias.
type SessionStore struct {
	mu                   sync.RWMutex
	chats                []domain.Chat
	activeChatID         string
	includeHistory       bool
	includeSystemMessage bool

	credentials *CredentialHolder
	subscribers []func(domain.Snapshot)

	now   func() time.Time
	newID func() string
}

func NewSessionStore(credentials *CredentialHolder) *SessionStore {
	if credentials == nil {
		credentials = NewCredentialHolder(DefaultCredentialTTL, nil)
	}
	return &SessionStore{
		includeHistory:       true,
		includeSystemMessage: true,
		credentials:          credentials,
		now:                  func() time.Time { return time.Now().UTC() },
		newID:                uuid.NewString,
	}
}

// Subscribe registra un callback invocado despues de cada cambio persistible.
// Los callbacks corren con el lock tomado: no deben bloquear ni volver a llamar al store.
func (s *SessionStore) Subscribe(fn func(domain.Snapshot)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// commit notifica a los suscriptores en orden de mutacion y libera el lock.
func (s *SessionStore) commit() {
	defer s.mu.Unlock()
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, fn := range s.subscribers {
		fn(snap)
	}
}

func (s *SessionStore) CreateChat() string {
	s.mu.Lock()
	id := s.createChatLocked()
	s.commit()
	return id
}

func (s *SessionStore) createChatLocked() string {
	title := InitialChatTitle
	if len(s.chats) > 0 {
		title = fmt.Sprintf("Chat %d", len(s.chats)+1)
	}
	chat := domain.Chat{
		ID:        s.newID(),
		Title:     title,
		Messages:  []domain.Message{},
		CreatedAt: s.now(),
		Model:     domain.DefaultModelID,
	}
	s.chats = append(s.chats, chat)
	s.activeChatID = chat.ID
	return chat.ID
}

// Bootstrap garantiza que exista al menos un chat y uno activo. Devuelve el id activo.
func (s *SessionStore) Bootstrap() string {
	s.mu.Lock()
	switch {
	case len(s.chats) == 0:
		s.createChatLocked()
	case s.indexLocked(s.activeChatID) < 0:
		s.activeChatID = s.chats[0].ID
	default:
		id := s.activeChatID
		s.mu.Unlock()
		return id
	}
	id := s.activeChatID
	s.commit()
	return id
}

func (s *SessionStore) SelectChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		return fmt.Errorf("select %q: %w", id, ErrChatNotFound)
	}
	s.activeChatID = id
	return nil
}

// DeleteChat elimina el chat; un id inexistente no hace nada.
func (s *SessionStore) DeleteChat(id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.chats = append(s.chats[:idx:idx], s.chats[idx+1:]...)
	if s.activeChatID == id {
		s.activeChatID = ""
		if len(s.chats) > 0 {
			s.activeChatID = s.chats[0].ID
		}
	}
	s.commit()
}

// RenameChat ignora titulos vacios o solo espacios.
func (s *SessionStore) RenameChat(id, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.chats[idx].Title = title
	s.commit()
	return true
}

// AppendMessage agrega al final del transcript; devuelve false si el chat no existe.
func (s *SessionStore) AppendMessage(chatID string, msg domain.Message) bool {
	s.mu.Lock()
	idx := s.indexLocked(chatID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.chats[idx].Messages = append(s.chats[idx].Messages, msg)
	s.commit()
	return true
}

func (s *SessionStore) SetModel(chatID, modelID string) error {
	if _, ok := domain.LookupModel(modelID); !ok {
		return fmt.Errorf("set model %q: %w", modelID, ErrUnknownModel)
	}
	s.mu.Lock()
	idx := s.indexLocked(chatID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("set model on %q: %w", chatID, ErrChatNotFound)
	}
	s.chats[idx].Model = modelID
	s.commit()
	return nil
}

func (s *SessionStore) SetSystemMessage(chatID, text string) error {
	s.mu.Lock()
	idx := s.indexLocked(chatID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("set system message on %q: %w", chatID, ErrChatNotFound)
	}
	s.chats[idx].SystemMessage = strings.TrimSpace(text)
	s.commit()
	return nil
}

func (s *SessionStore) SetIncludeHistory(include bool) {
	s.mu.Lock()
	s.includeHistory = include
	s.commit()
}

func (s *SessionStore) SetIncludeSystemMessage(include bool) {
	s.mu.Lock()
	s.includeSystemMessage = include
	s.commit()
}

func (s *SessionStore) SetCredential(token string) { s.credentials.Set(token) }

func (s *SessionStore) Credential() (string, bool) { return s.credentials.Get() }

func (s *SessionStore) ClearCredential(reason string) { s.credentials.Clear(reason) }

func (s *SessionStore) CredentialRequired() bool { return s.credentials.Required() }

// ClearAll vuelve al estado inicial. El llamador debe ejecutar Bootstrap despues.
func (s *SessionStore) ClearAll() {
	s.credentials.Clear(ClearReasonReset)
	s.mu.Lock()
	s.chats = nil
	s.activeChatID = ""
	s.includeHistory = true
	s.includeSystemMessage = true
	s.commit()
}

// Snapshot devuelve el subconjunto persistible del estado.
func (s *SessionStore) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *SessionStore) snapshotLocked() domain.Snapshot {
	chats := make([]domain.Chat, len(s.chats))
	for i, c := range s.chats {
		chats[i] = c.Clone()
	}
	return domain.Snapshot{
		Chats:                chats,
		IncludeHistory:       s.includeHistory,
		IncludeSystemMessage: s.includeSystemMessage,
	}
}

// Restore reemplaza chats y ajustes con lo persistido. El chat activo se
// resuelve luego con Bootstrap; la credencial no se toca.
func (s *SessionStore) Restore(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(snap.Chats))
	s.chats = make([]domain.Chat, 0, len(snap.Chats))
	for _, c := range snap.Chats {
		if c.ID == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		c = c.Clone()
		if _, ok := domain.LookupModel(c.Model); !ok {
			c.Model = domain.DefaultModelID
		}
		s.chats = append(s.chats, c)
	}
	if s.indexLocked(s.activeChatID) < 0 {
		s.activeChatID = ""
	}
	s.includeHistory = snap.IncludeHistory
	s.includeSystemMessage = snap.IncludeSystemMessage
}

func (s *SessionStore) Chats() []domain.Chat {
	return s.Snapshot().Chats
}

func (s *SessionStore) Chat(id string) (domain.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.Chat{}, false
	}
	return s.chats[idx].Clone(), true
}

func (s *SessionStore) ActiveChatID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeChatID
}

// ActiveChat resuelve el chat activo, si lo hay.
func (s *SessionStore) ActiveChat() (domain.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(s.activeChatID)
	if idx < 0 {
		return domain.Chat{}, false
	}
	return s.chats[idx].Clone(), true
}

func (s *SessionStore) IncludeHistory() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.includeHistory
}

func (s *SessionStore) IncludeSystemMessage() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.includeSystemMessage
}

func (s *SessionStore) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.chats {
		if s.chats[i].ID == id {
			return i
		}
	}
	return -1
}
