package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yoockh/texttalk/internal/models"
	"github.com/yoockh/texttalk/internal/services"
)

// HTTPBackend calls POST {base}/api/convert.
type HTTPBackend struct {
	base string
	http *http.Client
}

// NewHTTPBackend builds a client for the conversion service at base. No
// request timeout is set unless hc carries one.
func NewHTTPBackend(base string, hc *http.Client) *HTTPBackend {
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPBackend{base: strings.TrimRight(base, "/"), http: hc}
}

type convertRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

type convertResponse struct {
	AudioURL string `json:"audioUrl"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
}

// BackendError carries the status and whatever message the service sent.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tts backend: status %d", e.Status)
	}
	return fmt.Sprintf("tts backend: status %d: %s", e.Status, e.Message)
}

func (b *HTTPBackend) Convert(ctx context.Context, req services.ConversionRequest) (*models.ConversionResult, error) {
	body, err := json.Marshal(convertRequest{Text: req.Text, UserID: req.UserID})
	if err != nil {
		return nil, err
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+"/api/convert", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	if req.AccessToken != "" {
		hreq.Header.Set("Authorization", "Bearer "+req.AccessToken)
	}

	resp, err := b.http.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	const maxBytes = 1 << 20
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBytes))

	var out convertResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if msg == "" {
			msg = out.Message
		}
		return nil, &BackendError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("tts backend: decode response: %w", decodeErr)
	}
	if out.AudioURL == "" {
		return nil, fmt.Errorf("tts backend: response has no audioUrl")
	}
	return &models.ConversionResult{AudioURL: out.AudioURL}, nil
}
