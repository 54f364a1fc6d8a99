package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/siherrmann/dealgraph/core/cache"
	"github.com/siherrmann/dealgraph/core/llm"
	"github.com/siherrmann/dealgraph/core/pipeline"
	"github.com/siherrmann/dealgraph/core/retrieval"
	"github.com/siherrmann/dealgraph/core/router"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
)

// DefaultTTL is how long answers and reports are cached
const DefaultTTL = time.Hour

// Retriever is the storage side of question answering
type Retriever interface {
	SemanticSearch(ctx context.Context, embedding []float32, config model.QueryConfig) (*model.SemanticResult, error)
	ArticleContext(ctx context.Context, urls []string) (string, error)
	ReconstructArticle(ctx context.Context, url string) (string, error)
	MatchGraph(ctx context.Context, query *model.GraphQuery) ([]*model.GraphRecord, error)
}

// Agent answers questions and writes reports
type Agent struct {
	provider  llm.Provider
	retriever Retriever
	embed     pipeline.EmbedFunc
	router    *router.Router
	cache     cache.Cache
	ttl       time.Duration
	config    model.QueryConfig
	log       *slog.Logger
}

// NewAgent creates an agent. The cache is optional.
func NewAgent(provider llm.Provider, retriever Retriever, embed pipeline.EmbedFunc, c cache.Cache, config model.QueryConfig, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		provider:  provider,
		retriever: retriever,
		embed:     embed,
		router:    router.NewRouter(provider, c, logger),
		cache:     c,
		ttl:       DefaultTTL,
		config:    config.WithDefaults(),
		log:       logger,
	}
}

// Ask routes the question and answers it on the chosen path.
func (a *Agent) Ask(ctx context.Context, question string) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, helper.NewError("ask", fmt.Errorf("question is empty"))
	}

	key := cache.Key("answer", question)
	if answer, ok := a.cachedAnswer(key); ok {
		return answer, nil
	}

	var answer *model.Answer
	var err error
	switch a.router.Route(ctx, question) {
	case model.RouteGraph:
		answer, err = a.AnswerGraph(ctx, question)
	default:
		answer, err = a.AnswerSemantic(ctx, question)
	}
	if err != nil {
		return nil, err
	}

	if answer.Text != TranslationFailedMessage && !strings.HasPrefix(answer.Text, GraphErrorMessage) {
		a.store(key, answer)
	}
	return answer, nil
}

// AnswerSemantic answers from the articles closest to the question. Without
// a confident hit it lists the related articles instead.
func (a *Agent) AnswerSemantic(ctx context.Context, question string) (*model.Answer, error) {
	if a.embed == nil {
		return nil, helper.NewError("semantic answer", fmt.Errorf("no embedder configured"))
	}

	embedding, err := a.embed(question)
	if err != nil {
		return nil, helper.NewError("embed question", err)
	}

	result, err := a.retriever.SemanticSearch(ctx, embedding, a.config)
	if err != nil {
		return nil, helper.NewError("semantic search", err)
	}

	answer := &model.Answer{Question: question, Route: model.RouteSemantic}
	if !result.Confident {
		a.log.Info("No confident match", slog.Float64("top_score", result.TopScore()))
		answer.Text = idkText(result.RelatedURLs)
		answer.Sources = result.RelatedURLs
		return answer, nil
	}

	articles, err := a.retriever.ArticleContext(ctx, result.ContextURLs)
	if err != nil {
		return nil, helper.NewError("reconstruct articles", err)
	}

	text, err := a.complete(ctx, llm.CompletionRequest{Prompt: fmt.Sprintf(analystPrompt, articles, question)})
	if err != nil {
		return nil, helper.NewError("analyst answer", err)
	}

	answer.Text = text
	answer.Sources = result.ContextURLs
	return answer, nil
}

// AnswerGraph translates the question into a graph query, runs it and
// summarizes the matched facts. Translation and query failures are
// reported in the answer text.
func (a *Agent) AnswerGraph(ctx context.Context, question string) (*model.Answer, error) {
	answer := &model.Answer{Question: question, Route: model.RouteGraph}

	query, err := a.TranslateToGraphQuery(ctx, question)
	if err != nil {
		a.log.Warn("Error translating question", slog.String("error", err.Error()))
		answer.Text = TranslationFailedMessage
		return answer, nil
	}
	answer.GraphQuery = query

	records, err := a.retriever.MatchGraph(ctx, query)
	if err != nil {
		a.log.Warn("Error executing graph query", slog.String("error", err.Error()))
		answer.Text = GraphErrorMessage + err.Error()
		return answer, nil
	}
	if len(records) == 0 {
		answer.Text = NoGraphDataMessage
		return answer, nil
	}

	a.log.Info("Found graph records", slog.Int("records", len(records)))
	answer.Records = records
	answer.Sources = recordSources(records)

	facts := retrieval.FormatRecords(records)
	text, err := a.complete(ctx, llm.CompletionRequest{Prompt: fmt.Sprintf(graphAnswerPrompt, facts, question)})
	if err != nil {
		a.log.Warn("Error summarizing graph records, returning raw records", slog.String("error", err.Error()))
		text = facts
	}
	answer.Text = text

	return answer, nil
}

// TranslateToGraphQuery asks the LLM for a structured graph query
func (a *Agent) TranslateToGraphQuery(ctx context.Context, question string) (*model.GraphQuery, error) {
	text, err := a.complete(ctx, llm.CompletionRequest{
		System: graphQuerySystemPrompt,
		Prompt: fmt.Sprintf(graphQueryPrompt, question),
		JSON:   true,
	})
	if err != nil {
		return nil, helper.NewError("generate graph query", err)
	}

	query, err := model.ParseGraphQuery(text)
	if err != nil {
		return nil, helper.NewError("parse graph query", err)
	}
	if query.Limit > a.config.GraphRowLimit {
		query.Limit = a.config.GraphRowLimit
	}

	a.log.Debug("Generated graph query", slog.Any("query", query))
	return query, nil
}

// GenerateReport writes a report on a topic from one stored article
func (a *Agent) GenerateReport(ctx context.Context, url string, topic string) (*model.Report, error) {
	url, topic = strings.TrimSpace(url), strings.TrimSpace(topic)
	if url == "" {
		return nil, helper.NewError("generate report", fmt.Errorf("article url is empty"))
	}
	if topic == "" {
		return nil, helper.NewError("generate report", fmt.Errorf("report topic is empty"))
	}

	key := cache.Key("report", url, topic)
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			report := &model.Report{}
			if err := json.Unmarshal(cached, report); err == nil {
				return report, nil
			}
		}
	}

	report := &model.Report{ArticleURL: url, Topic: topic, GeneratedAt: time.Now().UTC()}

	content, err := a.retriever.ReconstructArticle(ctx, url)
	if err != nil {
		return nil, helper.NewError("reconstruct article", err)
	}
	if content == "" {
		report.Text = ReportNoContentMessage
		return report, nil
	}

	text, err := a.complete(ctx, llm.CompletionRequest{Prompt: fmt.Sprintf(reportPrompt, topic, content)})
	if err != nil {
		return nil, helper.NewError("write report", err)
	}
	report.Text = text

	a.store(key, report)
	return report, nil
}

func (a *Agent) complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if a.provider == nil {
		return "", fmt.Errorf("no LLM provider configured")
	}
	resp, err := a.provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (a *Agent) cachedAnswer(key string) (*model.Answer, bool) {
	if a.cache == nil {
		return nil, false
	}
	cached, ok := a.cache.Get(key)
	if !ok {
		return nil, false
	}

	answer := &model.Answer{}
	if err := json.Unmarshal(cached, answer); err != nil {
		return nil, false
	}
	answer.Cached = true
	return answer, true
}

func (a *Agent) store(key string, value interface{}) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(key, data, a.ttl); err != nil {
		a.log.Warn("Error caching result", slog.String("error", err.Error()))
	}
}

func idkText(urls []string) string {
	var b strings.Builder
	b.WriteString(IDKMessage)
	for _, url := range urls {
		b.WriteString("\n- ")
		b.WriteString(url)
	}
	return b.String()
}

func recordSources(records []*model.GraphRecord) []string {
	sources := []string{}
	seen := map[string]bool{}
	for _, r := range records {
		for _, url := range r.ArticleURLs {
			if !seen[url] {
				seen[url] = true
				sources = append(sources, url)
			}
		}
	}
	return sources
}
