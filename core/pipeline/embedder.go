package pipeline

import (
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/retriever/helper"
)

// EmbeddingModel is the sentence transformer used by the default embedder.
// It handles multilingual content reasonably and produces 384-dimensional
// vectors (EmbeddingDim).
const (
	EmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	EmbeddingDim   = 384
)

// DefaultEmbedder creates an embedder backed by a local sentence
// transformer model, downloading it on first use
func DefaultEmbedder() (EmbedFunc, error) {
	modelPath, err := helper.PrepareModel(EmbeddingModel, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "retriever-embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return func(text string) ([]float32, error) {
		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		return result.Embeddings[0], nil
	}, nil
}
