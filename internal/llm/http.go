package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

// ValidatePath is the route of the validation endpoint.
const ValidatePath = "/api/validateDesignElements"

// HTTPValidator posts payloads to the validation service.
type HTTPValidator struct {
	Endpoint string
	Tokens   TokenProvider
	Client   *http.Client
}

// NewHTTPValidator builds a validator for the service rooted at baseURL.
func NewHTTPValidator(baseURL string, tokens TokenProvider, timeout time.Duration) *HTTPValidator {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPValidator{
		Endpoint: strings.TrimRight(baseURL, "/") + ValidatePath,
		Tokens:   tokens,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (v *HTTPValidator) Validate(ctx context.Context, payload models.EvidencePayload) (string, error) {
	token, err := v.Tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("json.Marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", v.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: HTTP error! status: %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: HTTP error! status: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out models.ValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return out.Answer, nil
}
