package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"news_tracker/internal/domain"
)

const (
	articleSheet = "Articles"
	summarySheet = "Summary"

	headerFill = "1B2838"
)

var columns = []struct {
	title string
	width float64
}{
	{"Date", 12},
	{"Subject", 16},
	{"Channel", 20},
	{"Language", 10},
	{"Topic", 16},
	{"Title", 60},
	{"URL", 50},
	{"Source", 14},
}

// ArticleReader is the slice of storage the generator needs.
type ArticleReader interface {
	QueryByDateRange(ctx context.Context, from, to time.Time) ([]domain.Article, error)
}

// Generator writes an Excel workbook with one row per collected article and
// a per-subject summary sheet.
type Generator struct {
	articles  ArticleReader
	outputDir string
	logger    *slog.Logger
}

func NewGenerator(articles ArticleReader, outputDir string, logger *slog.Logger) *Generator {
	return &Generator{
		articles:  articles,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Generate builds the workbook for the window and returns its path.
func (g *Generator) Generate(ctx context.Context, from, to time.Time) (string, error) {
	articles, err := g.articles.QueryByDateRange(ctx, from, to)
	if err != nil {
		return "", fmt.Errorf("load articles: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", articleSheet)
	if err := g.writeArticles(f, articles); err != nil {
		return "", err
	}
	if err := g.writeSummary(f, articles, from, to); err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("news_report_%s_%s.xlsx",
		to.UTC().Format("2006-01-02"), to.UTC().Format("1504"))
	path := filepath.Join(g.outputDir, filename)

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	g.logger.Info("generated report", "path", path, "articles", len(articles))
	return path, nil
}

func (g *Generator) writeArticles(f *excelize.File, articles []domain.Article) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(articleSheet, cell, col.title); err != nil {
			return err
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(articleSheet, name, name, col.width); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(articleSheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i, a := range articles {
		row := i + 2
		values := []interface{}{
			a.PublishedAt.UTC().Format("2006-01-02"),
			string(a.Subject),
			a.Channel,
			string(a.Language),
			a.Topic,
			a.Title,
			a.URL,
			a.Source,
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(articleSheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SetPanes(articleSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (g *Generator) writeSummary(f *excelize.File, articles []domain.Article, from, to time.Time) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	bySubject := make(map[domain.Subject]int)
	byTopic := make(map[string]int)
	for _, a := range articles {
		bySubject[a.Subject]++
		byTopic[a.Topic]++
	}

	rows := [][]interface{}{
		{"Window", fmt.Sprintf("%s to %s", from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))},
		{"Total articles", len(articles)},
		{},
		{"By subject"},
	}
	for subject, count := range bySubject {
		rows = append(rows, []interface{}{string(subject), count})
	}
	rows = append(rows, []interface{}{}, []interface{}{"By topic"})
	for topic, count := range byTopic {
		rows = append(rows, []interface{}{topic, count})
	}

	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SetColWidth(summarySheet, "A", "A", 24)
}
