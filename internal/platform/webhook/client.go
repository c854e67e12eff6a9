package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clubtac-rating-backend/internal/common/logger"
)

// Client talks to the external registration workflow. The workflow owns the
// participant row and the payment link; this app only posts the registration
// request and interprets the reply.
type Client struct {
	httpClient *http.Client
	url        string
}

// RegistrationRequest — тело запроса к workflow.
type RegistrationRequest struct {
	EventID    int64 `json:"event_id"`
	UserID     int64 `json:"user_id"`
	TelegramID int64 `json:"telegram_id"`
}

// RegistrationReply — разобранный ответ workflow.
//
// Workflow может ответить тремя способами:
//   - JSON с полем paylink — регистрация создана, ждём оплату;
//   - JSON без paylink — регистрация создана, статус надо перечитать из базы;
//   - голый acknowledgement (пустое тело или не-JSON текст) — шаг регистрации
//     не завершился осмысленно, клиент должен повторить.
type RegistrationReply struct {
	Paylink string `json:"paylink"`
	BareAck bool   `json:"-"`
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}
}

// Register отправляет запрос регистрации. Ошибка возвращается только при
// транспортном сбое или не-2xx статусе; интерпретация тела — на вызывающем.
func (c *Client) Register(ctx context.Context, req RegistrationRequest) (*RegistrationReply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registration request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call registration webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("registration webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	var reply RegistrationReply
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &reply) != nil {
		// Не-JSON тело ("Accepted" и подобное) — голый acknowledgement.
		logger.Debug().
			Int64("event_id", req.EventID).
			Str("body", string(body)).
			Msg("Webhook replied with bare acknowledgement")
		return &RegistrationReply{BareAck: true}, nil
	}

	return &reply, nil
}
