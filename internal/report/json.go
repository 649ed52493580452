package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/zombar/humanscore/internal/models"
)

// Export is the downloadable JSON document
type Export struct {
	Metadata  ExportMetadata          `json:"metadata"`
	Metrics   ExportMetrics           `json:"metrics"`
	Sentences []models.SentenceRecord `json:"sentences"`
}

// ExportMetadata describes when and what was scored
type ExportMetadata struct {
	ReportDate time.Time `json:"report_date"`
	HumanScore float64   `json:"human_score"`
}

// ExportMetrics are the document-level signals
type ExportMetrics struct {
	PerpOverall           float64 `json:"perp_overall"`
	BurstOverall          float64 `json:"burst_overall"`
	DiversityOverall      float64 `json:"diversity_overall"`
	RobertaDetectionScore float64 `json:"roberta_detection_score"`
}

// NewExport builds the export document for result
func NewExport(result models.AnalysisResult, generated time.Time) Export {
	sentences := result.Sentences
	if sentences == nil {
		sentences = []models.SentenceRecord{}
	}
	return Export{
		Metadata: ExportMetadata{
			ReportDate: generated,
			HumanScore: result.HumanScore,
		},
		Metrics: ExportMetrics{
			PerpOverall:           result.Perplexity,
			BurstOverall:          result.Burstiness,
			DiversityOverall:      result.LexicalDiversity,
			RobertaDetectionScore: result.HumanProbability,
		},
		Sentences: sentences,
	}
}

// WriteJSON writes the indented export document
func WriteJSON(w io.Writer, result models.AnalysisResult, generated time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewExport(result, generated)); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

// ParseJSON reads an export document back
func ParseJSON(r io.Reader) (*Export, error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode JSON report: %w", err)
	}
	return &export, nil
}
