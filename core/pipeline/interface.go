package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
)

const (
	// ParentChunkSize is the largest parent passage in characters
	ParentChunkSize = 38000
	// PassageChunkSize is the largest searchable passage in characters
	PassageChunkSize = 1000
	// PassageOverlap is carried from one searchable passage into the next
	PassageOverlap = 100
)

// TextChunk is a piece of a text. StartPos and EndPos are byte offsets into
// the text that was split.
type TextChunk struct {
	Content  string
	StartPos int
	EndPos   int
}

// ChunkFunc is a function that splits text into ordered chunks
type ChunkFunc func(text string) ([]TextChunk, error)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

// GraphExtractFunc extracts entities and relationships from an article text
type GraphExtractFunc func(ctx context.Context, text string) (*ExtractedGraph, error)

// ExtractedEntity is an entity found in a text, before merging into the graph
type ExtractedEntity struct {
	Name string           `json:"name"`
	Type model.EntityType `json:"type"`
}

// ExtractedRelationship references its endpoints by name
type ExtractedRelationship struct {
	Source string             `json:"source"`
	Target string             `json:"target"`
	Type   model.RelationType `json:"type"`
}

// ExtractedGraph is the knowledge graph of one text
type ExtractedGraph struct {
	Entities      []ExtractedEntity       `json:"entities"`
	Relationships []ExtractedRelationship `json:"relationships"`
}

// Pipeline turns an article into parent and searchable passages
type Pipeline struct {
	ParentSplitter  ChunkFunc
	PassageSplitter ChunkFunc
	Embedder        EmbedFunc
	GraphExtractor  GraphExtractFunc // Optional
}

// NewPipeline creates a new processing pipeline
func NewPipeline(parentSplitter ChunkFunc, passageSplitter ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		ParentSplitter:  parentSplitter,
		PassageSplitter: passageSplitter,
		Embedder:        embedder,
	}
}

// DefaultPipeline splits articles into 38000 character parents and 1000
// character searchable passages with 100 characters of overlap.
func DefaultPipeline(embedder EmbedFunc) *Pipeline {
	return NewPipeline(
		RecursiveSplitter(ParentChunkSize, 0),
		RecursiveSplitter(PassageChunkSize, PassageOverlap),
		embedder,
	)
}

// SetGraphExtractor sets the graph extraction function
func (p *Pipeline) SetGraphExtractor(extractor GraphExtractFunc) {
	p.GraphExtractor = extractor
}

// ProcessingResult contains the passages of one article
type ProcessingResult struct {
	Parents  []*model.Passage
	Passages []*model.Passage
}

// All returns parents followed by searchable passages
func (r *ProcessingResult) All() []*model.Passage {
	all := make([]*model.Passage, 0, len(r.Parents)+len(r.Passages))
	all = append(all, r.Parents...)
	return append(all, r.Passages...)
}

// Process splits the article content into parent passages and embedded
// searchable passages. Passages carry keys and positions but no article ID.
func (p *Pipeline) Process(article *model.Article) (*ProcessingResult, error) {
	if p.ParentSplitter == nil || p.PassageSplitter == nil || p.Embedder == nil {
		return nil, helper.NewError("process article", fmt.Errorf("pipeline is missing a splitter or embedder"))
	}
	if article.URL == "" {
		return nil, helper.NewError("process article", fmt.Errorf("article url is empty"))
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, helper.NewError("process article", fmt.Errorf("article content is empty"))
	}

	parentChunks, err := p.ParentSplitter(article.Content)
	if err != nil {
		return nil, helper.NewError("split parents", err)
	}

	passageChunks, err := p.PassageSplitter(article.Content)
	if err != nil {
		return nil, helper.NewError("split passages", err)
	}

	result := &ProcessingResult{
		Parents:  make([]*model.Passage, 0, len(parentChunks)),
		Passages: make([]*model.Passage, 0, len(passageChunks)),
	}

	for i, c := range parentChunks {
		result.Parents = append(result.Parents, newPassage(article, model.PassageParent, i, c))
	}

	for i, c := range passageChunks {
		embedding, err := p.Embedder(c.Content)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("embed passage %d", i), err)
		}

		passage := newPassage(article, model.PassageSearchable, i, c)
		passage.Embedding = embedding
		result.Passages = append(result.Passages, passage)
	}

	return result, nil
}

// ExtractGraph runs the configured graph extractor
func (p *Pipeline) ExtractGraph(ctx context.Context, text string) (*ExtractedGraph, error) {
	if p.GraphExtractor == nil {
		return nil, helper.NewError("extract graph", fmt.Errorf("graph extractor not set, use SetGraphExtractor() first"))
	}
	return p.GraphExtractor(ctx, text)
}

func newPassage(article *model.Article, kind model.PassageKind, i int, c TextChunk) *model.Passage {
	start, end := c.StartPos, c.EndPos
	return &model.Passage{
		ArticleRID: article.RID,
		ArticleURL: article.URL,
		Kind:       kind,
		Index:      i,
		Key:        model.PassageKey(article.URL, kind, i),
		Content:    c.Content,
		StartPos:   &start,
		EndPos:     &end,
		Metadata:   model.Metadata{"url": article.URL},
	}
}
