package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"doc-chat-be/internal/dto"
	"doc-chat-be/internal/pkg/logger"
	"doc-chat-be/pkg/apperrors"
)

// QAProxyClient forwards questions to an external answering service
// instead of the local retrieval pipeline. The two modes are mutually
// exclusive per deployment; the proxy returns the same response shape the
// local pipeline does, plus whatever sources/suggestions/notice the
// upstream provides.
type QAProxyClient struct {
	endpoint string
	client   *http.Client
	logger   logger.ILogger
}

func NewQAProxyClient(endpoint string, timeout time.Duration, log logger.ILogger) *QAProxyClient {
	if endpoint == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &QAProxyClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}
}

type qaProxyRequest struct {
	SessionId string `json:"session_id"`
	Question  string `json:"question"`
}

func (q *QAProxyClient) Ask(ctx context.Context, sessionId, question string) (*dto.QueryResponse, error) {
	body, err := json.Marshal(qaProxyRequest{SessionId: sessionId, Question: question})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAPI, "failed to encode proxy request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAPI, "failed to build proxy request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		q.logger.Error("qa_proxy", "upstream call failed", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.Wrap(apperrors.KindAPI, "answering service unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		q.logger.Error("qa_proxy", "upstream returned non-200", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(raw),
		})
		return nil, apperrors.New(apperrors.KindAPI, fmt.Sprintf("answering service returned status %d", resp.StatusCode))
	}

	var out dto.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.Wrap(apperrors.KindAPI, "failed to decode proxy response", err)
	}
	return &out, nil
}
