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

// ElevenLabs synthesizes via the HTTP endpoint, requesting raw PCM at the
// system sample rate so no transcoding is needed before dispatch.
type ElevenLabs struct {
	APIKey  string
	VoiceID string
	ModelID string

	httpClient *http.Client
}

func NewElevenLabs(apiKey, voiceID string) *ElevenLabs {
	return &ElevenLabs{
		APIKey:     apiKey,
		VoiceID:    voiceID,
		ModelID:    "eleven_flash_v2_5",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if e.APIKey == "" || e.VoiceID == "" {
		return nil, "", fmt.Errorf("elevenlabs: api key or voice id missing")
	}
	if text == "" {
		return nil, "", fmt.Errorf("elevenlabs: empty text")
	}

	u := url.URL{
		Scheme: "https",
		Host:   "api.elevenlabs.io",
		Path:   "/v1/text-to-speech/" + e.VoiceID,
	}
	q := u.Query()
	q.Set("output_format", "pcm_16000")
	u.RawQuery = q.Encode()

	body := map[string]any{
		"model_id": e.ModelID,
		"text":     text,
		"voice_settings": map[string]any{
			"stability":        0.4,
			"similarity_boost": 0.7,
		},
	}
	buf, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("elevenlabs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("elevenlabs: status=%d body=%s", resp.StatusCode, string(b))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("elevenlabs: read body: %w", err)
	}
	if len(audio) == 0 {
		return nil, "", fmt.Errorf("elevenlabs: empty audio")
	}
	return audio, "pcm_16000", nil
}
