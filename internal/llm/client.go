package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NoResponseText se devuelve cuando el proveedor responde sin contenido.
const NoResponseText = "No response"

var (
	ErrNetwork  = errors.New("llm network error")
	ErrAuth     = errors.New("llm auth error")
	ErrProvider = errors.New("llm provider error")
)

// Message es una entrada role+content del payload enviado al proveedor.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest lleva todo lo necesario para una llamada; la credencial viaja por request.
type CompletionRequest struct {
	APIKey   string
	Model    string
	Messages []Message
}

// Completer define la frontera con la API de completions.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// HTTPClient implementa Completer usando la API de OpenAI-compatible.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye un cliente HTTP apuntando a la API de chat completions.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPClient) Complete(ctx context.Context, in CompletionRequest) (string, error) {
	reqBody := chatRequest{
		Model:    in.Model,
		Messages: in.Messages,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+in.APIKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending completion request",
		zap.String("model", in.Model),
		zap.Int("messages", len(in.Messages)),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: do request: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("llm error status",
			zap.Int("status", resp.StatusCode),
			zap.String("model", in.Model),
			zap.ByteString("body", respBody),
		)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: status=%d", ErrAuth, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: status=%d", ErrProvider, resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", ErrProvider, err)
	}

	if cr.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrProvider, cr.Error.Message)
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return NoResponseText, nil
	}

	return cr.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
