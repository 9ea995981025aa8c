package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DrSkyle/provtag/pkg/resource"
)

// Summary is the aggregate result of one reconciliation run.
type Summary struct {
	RunID    string    `json:"run_id" yaml:"run_id"`
	Account  string    `json:"account,omitempty" yaml:"account,omitempty"`
	Region   string    `json:"region,omitempty" yaml:"region,omitempty"`
	Started  time.Time `json:"started" yaml:"started"`
	Finished time.Time `json:"finished" yaml:"finished"`
	DryRun   bool      `json:"dry_run" yaml:"dry_run"`

	Listed           int `json:"listed" yaml:"listed"`
	AlreadyTagged    int `json:"already_tagged" yaml:"already_tagged"`
	Resolved         int `json:"resolved" yaml:"resolved"`
	ResolvedUnknown  int `json:"resolved_unknown" yaml:"resolved_unknown"`
	FailedResolution int `json:"failed_resolution" yaml:"failed_resolution"`
	FailedWrite      int `json:"failed_write" yaml:"failed_write"`
	Excluded         int `json:"excluded" yaml:"excluded"`

	// Outcomes are in listing order.
	Outcomes []resource.Outcome `json:"-" yaml:"-"`
}

// Add counts one outcome. It does not append to Outcomes.
func (s *Summary) Add(o resource.Outcome) {
	s.Listed++
	switch o.Kind {
	case resource.AlreadyTagged:
		s.AlreadyTagged++
	case resource.Excluded:
		s.Excluded++
	case resource.Resolved:
		s.Resolved++
		if o.Record.IsUnknown() {
			s.ResolvedUnknown++
		}
	case resource.Failed:
		if o.Stage == resource.StageWrite {
			s.FailedWrite++
		} else {
			s.FailedResolution++
		}
	}
}

// Failures is the number of resources that need another run.
func (s *Summary) Failures() int {
	return s.FailedResolution + s.FailedWrite
}

// Partial reports whether any resource failed.
func (s *Summary) Partial() bool {
	return s.Failures() > 0
}

// Duration of the run.
func (s *Summary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// Failure is a failed outcome in exportable form.
type Failure struct {
	ID    string `json:"id" yaml:"id"`
	Stage string `json:"stage" yaml:"stage"`
	Error string `json:"error" yaml:"error"`
}

type summaryDoc struct {
	Summary  `yaml:",inline"`
	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// WriteSummary encodes s as "yaml" or "json".
func WriteSummary(w io.Writer, s *Summary, format string) error {
	doc := summaryDoc{Summary: *s}
	for _, o := range s.Outcomes {
		if o.Kind != resource.Failed {
			continue
		}
		f := Failure{ID: o.Resource.ID, Stage: string(o.Stage)}
		if o.Err != nil {
			f.Error = o.Err.Error()
		}
		doc.Failures = append(doc.Failures, f)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported summary format %q", format)
	}
}
