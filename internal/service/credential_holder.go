package service

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCredentialTTL es la vida maxima de una credencial desde el ultimo Set.
const DefaultCredentialTTL = 3 * time.Hour

const (
	ClearReasonUser    = "user"
	ClearReasonUnload  = "unload"
	ClearReasonExpired = "expired"
	ClearReasonReset   = "reset"
)

// CredentialHolder guarda la API key solo en memoria, con expiracion.
type CredentialHolder struct {
	mu        sync.Mutex
	value     string
	expiresAt time.Time
	fallback  string
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewCredentialHolder(ttl time.Duration, logger *zap.Logger) *CredentialHolder {
	if ttl <= 0 {
		ttl = DefaultCredentialTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialHolder{
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Set reemplaza la credencial y reinicia el plazo de expiracion.
func (h *CredentialHolder) Set(token string) {
	token = strings.TrimSpace(token)
	h.mu.Lock()
	defer h.mu.Unlock()
	if token == "" {
		h.clearLocked(ClearReasonUser)
		return
	}
	h.value = token
	h.expiresAt = h.now().Add(h.ttl)
}

// AdoptEnvironment toma la credencial provista por el entorno si no hay otra.
// Queda ademas como respaldo para que la vista nunca pida una.
func (h *CredentialHolder) AdoptEnvironment(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fallback = token
	if h.value != "" {
		return false
	}
	h.value = token
	h.expiresAt = h.now().Add(h.ttl)
	h.logger.Info("adopted environment credential")
	return true
}

// Get devuelve la credencial vigente. Una credencial vencida se descarta al leerla.
func (h *CredentialHolder) Get() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.value != "" && !h.now().Before(h.expiresAt) {
		h.clearLocked(ClearReasonExpired)
	}
	if h.value != "" {
		return h.value, true
	}
	if h.fallback != "" {
		return h.fallback, true
	}
	return "", false
}

// Required indica si la vista debe pedir una credencial al usuario.
func (h *CredentialHolder) Required() bool {
	_, ok := h.Get()
	return !ok
}

func (h *CredentialHolder) Clear(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearLocked(reason)
}

func (h *CredentialHolder) clearLocked(reason string) {
	if h.value == "" {
		return
	}
	h.value = ""
	h.expiresAt = time.Time{}
	h.logger.Info("credential cleared", zap.String("reason", reason))
}
