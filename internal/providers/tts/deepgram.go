package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Deepgram synthesizes via the Aura REST endpoint with linear16 output at
// the system sample rate.
type Deepgram struct {
	APIKey string
	Model  string

	httpClient *http.Client
}

func NewDeepgram(apiKey, model string) *Deepgram {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	return &Deepgram{
		APIKey:     apiKey,
		Model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *Deepgram) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if d.APIKey == "" {
		return nil, "", fmt.Errorf("deepgram: api key missing")
	}
	if text == "" {
		return nil, "", fmt.Errorf("deepgram: empty text")
	}

	u := url.URL{Scheme: "https", Host: "api.deepgram.com", Path: "/v1/speak"}
	q := u.Query()
	q.Set("model", d.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", "16000")
	q.Set("container", "none")
	u.RawQuery = q.Encode()

	body, _ := json.Marshal(map[string]string{"text": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Token "+d.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("deepgram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("deepgram: status=%d body=%s", resp.StatusCode, string(b))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("deepgram: read body: %w", err)
	}
	if len(audio) == 0 {
		return nil, "", fmt.Errorf("deepgram: empty audio")
	}
	return audio, "pcm_16000", nil
}
