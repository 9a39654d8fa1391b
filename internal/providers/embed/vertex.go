package embed

import (
	"context"
	"errors"

	vertexgenai "cloud.google.com/go/vertexai/genai"
)

type Vertex struct {
	client *vertexgenai.Client
	model  *vertexgenai.EmbeddingModel
}

func NewVertex(ctx context.Context, projectID, location, modelName string) (*Vertex, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "text-embedding-004"
	}

	return &Vertex{client: c, model: c.EmbeddingModel(modelName)}, nil
}

func (v *Vertex) Close() error { return v.client.Close() }

func (v *Vertex) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := v.model.EmbedContent(ctx, vertexgenai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, errors.New("embed: empty embedding response")
	}
	return resp.Embedding.Values, nil
}
