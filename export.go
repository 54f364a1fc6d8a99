package dealgraph

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
)

// ExportFormat selects the output of ExportArticles
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

const exportPageSize = 100

// ExportArticles writes every stored article with its reconstructed text
// as a JSON array of {url, title, content} records, the format read by
// IndexScrapedFile, or as CSV with the same columns. Returns the number
// of articles written.
func (g *DealGraph) ExportArticles(w io.Writer, format ExportFormat) (int, error) {
	records, err := g.exportRecords()
	if err != nil {
		return 0, err
	}

	switch format {
	case ExportJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(records); err != nil {
			return 0, helper.NewError("encode json", err)
		}

	case ExportCSV:
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{"url", "title", "content"}); err != nil {
			return 0, helper.NewError("write csv header", err)
		}
		for _, r := range records {
			if err := writer.Write([]string{r.URL, r.Title, r.Content}); err != nil {
				return 0, helper.NewError("write csv record", err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return 0, helper.NewError("flush csv", err)
		}

	default:
		return 0, helper.NewError("export articles", fmt.Errorf("unsupported format %q (use json or csv)", format))
	}

	return len(records), nil
}

// exportRecords pages through all articles, newest first
func (g *DealGraph) exportRecords() ([]model.ScrapedArticle, error) {
	records := []model.ScrapedArticle{}

	var lastCreatedAt *time.Time
	var lastID int64
	for {
		articles, err := g.Articles.SelectAllArticles(lastCreatedAt, lastID, exportPageSize)
		if err != nil {
			return nil, helper.NewError("select articles", err)
		}

		for _, article := range articles {
			parents, err := g.Passages.SelectPassagesByArticle(article.RID, model.PassageParent)
			if err != nil {
				return nil, helper.NewError("select parent passages", err)
			}
			records = append(records, model.ScrapedArticle{
				URL:     article.URL,
				Title:   article.Title,
				Content: joinParents(parents),
			})
		}

		if len(articles) < exportPageSize {
			return records, nil
		}
		last := articles[len(articles)-1]
		lastCreatedAt, lastID = &last.CreatedAt, last.ID
	}
}

func joinParents(parents []*model.Passage) string {
	parts := make([]string, 0, len(parents))
	for _, p := range parents {
		parts = append(parts, p.Content)
	}
	return strings.Join(parts, "\n\n")
}
