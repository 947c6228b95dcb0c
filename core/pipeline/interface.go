package pipeline

import "github.com/siherrmann/retriever/model"

// ChunkFunc splits raw text into normalized, token-bounded chunks with
// contiguous 0-based indices and stable offsets
type ChunkFunc func(text string) ([]model.Chunk, error)

// EmbedFunc generates an embedding vector for text
type EmbedFunc func(text string) ([]float32, error)

// Pipeline combines chunking and embedding for document ingestion
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder EmbedFunc
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// Process chunks text and generates an embedding per chunk
func (p *Pipeline) Process(text string) ([]model.Chunk, error) {
	chunks, err := p.Chunker(text)
	if err != nil {
		return nil, err
	}

	for i := range chunks {
		embedding, err := p.Embedder(chunks[i].Text)
		if err != nil {
			return nil, err
		}
		chunks[i].Embedding = embedding
	}

	return chunks, nil
}
