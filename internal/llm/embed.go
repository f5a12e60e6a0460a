package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// maxEmbedBatchSize is the provider's limit on EmbedContent batch size.
const maxEmbedBatchSize = 100

// Embed produces a single embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string, dimensions int32) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text}, dimensions)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("llm: no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch embeds many texts in as few provider round trips as
// possible (spec §4.2 "Batch embedding"): one call per chunk of up to
// maxEmbedBatchSize texts, chunks processed sequentially.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, dimensions int32) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if len(texts) <= maxEmbedBatchSize {
		return c.embedChunkWithFallback(ctx, texts, dimensions)
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatchSize {
		end := start + maxEmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk, err := c.embedChunkWithFallback(ctx, texts[start:end], dimensions)
		if err != nil {
			return nil, fmt.Errorf("llm: embed batch [%d:%d] failed: %w", start, end, err)
		}
		all = append(all, chunk...)
	}
	return all, nil
}

// embedChunkWithFallback tries the chunk as one provider call and, on
// failure, degrades to one call per text before giving up entirely
// (spec §4.2: "falling back to sequential only on batch failure").
func (c *Client) embedChunkWithFallback(ctx context.Context, texts []string, dimensions int32) ([][]float32, error) {
	vectors, err := c.embedChunk(ctx, texts, dimensions)
	if err == nil || len(texts) <= 1 {
		return vectors, err
	}

	c.log.Warn("llm: batch embed failed, retrying sequentially", map[string]interface{}{"count": len(texts), "error": err.Error()})
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, serr := c.embedChunk(ctx, []string{text}, dimensions)
		if serr != nil {
			return nil, fmt.Errorf("llm: sequential embed fallback failed at %d: %w", i, serr)
		}
		out[i] = v[0]
	}
	return out, nil
}

func (c *Client) embedChunk(ctx context.Context, texts []string, dimensions int32) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	model := c.embeddingModel
	if model == "" {
		model = "gemini-embedding-001"
	}

	result, err := c.genaiClient.Models.EmbedContent(ctx, model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(dimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("llm: embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("llm: no embeddings returned")
	}

	out := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
