package engine

import (
	"bytes"
	"context"
	"fmt"

	"github.com/DrSkyle/provtag/pkg/engine/report"
	"github.com/DrSkyle/provtag/pkg/resource"
	"github.com/DrSkyle/provtag/pkg/storage"
)

// Artifact names written per run.
const (
	ReportFile      = "report.csv"
	SummaryYAMLFile = "summary.yaml"
	SummaryJSONFile = "summary.json"
)

// WriteArtifacts stores the inventory report and run summary under
// <runID>/ in store and returns their locations. A failed upload is logged
// and the remaining artifacts are still attempted.
func (e *Engine) WriteArtifacts(ctx context.Context, sum *report.Summary, store storage.BlobStore, lifetimeKey string) ([]string, error) {
	keys := report.Keys{
		Creator:     e.config.CreatorKey,
		CreatedDate: e.config.CreatedDateKey,
		Lifetime:    lifetimeKey,
	}

	resources := make([]resource.Resource, 0, len(sum.Outcomes))
	for _, o := range sum.Outcomes {
		resources = append(resources, o.Resource)
	}

	var csvBuf, yamlBuf, jsonBuf bytes.Buffer
	if err := report.RenderCSV(&csvBuf, resources, keys); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	if err := report.WriteSummary(&yamlBuf, sum, "yaml"); err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := report.WriteSummary(&jsonBuf, sum, "json"); err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{ReportFile, csvBuf.Bytes()},
		{SummaryYAMLFile, yamlBuf.Bytes()},
		{SummaryJSONFile, jsonBuf.Bytes()},
	}

	var (
		written  []string
		firstErr error
	)
	for _, f := range files {
		key := sum.RunID + "/" + f.name
		if err := store.Put(ctx, key, f.data); err != nil {
			e.Logger.Warn("Failed to write artifact", "file", f.name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written = append(written, store.Location(key))
	}
	if len(written) > 0 {
		e.Logger.Info("Artifacts written", "files", written)
	}
	return written, firstErr
}
