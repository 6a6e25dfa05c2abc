package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPPredictor calls a model served over HTTP: POST {"input": ...} to the
// endpoint, expect 2xx with {"result": ...}. Non-2xx responses and
// timeouts are errors; the caller compensates accordingly.
type HTTPPredictor struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPPredictor(endpoint string, timeout time.Duration) *HTTPPredictor {
	return &HTTPPredictor{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ Predictor = (*HTTPPredictor)(nil)

type predictRequest struct {
	Input string `json:"input"`
}

type predictResponse struct {
	Result string `json:"result"`
}

func (p *HTTPPredictor) Predict(ctx context.Context, input string) (string, error) {
	body, err := json.Marshal(predictRequest{Input: input})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("model endpoint returned status %d", resp.StatusCode)
	}
	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("model endpoint returned invalid JSON: %w", err)
	}
	return out.Result, nil
}
