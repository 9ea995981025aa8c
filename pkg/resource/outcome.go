package resource

// OutcomeKind classifies a per-resource reconciliation result.
type OutcomeKind int

const (
	AlreadyTagged OutcomeKind = iota
	Resolved
	Failed
	Excluded
)

func (k OutcomeKind) String() string {
	switch k {
	case AlreadyTagged:
		return "ALREADY_TAGGED"
	case Resolved:
		return "RESOLVED"
	case Failed:
		return "FAILED"
	case Excluded:
		return "EXCLUDED"
	}
	return "UNDEFINED"
}

// Stage names the step at which a Failed outcome occurred.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageWrite   Stage = "write"
)

// Outcome is the per-resource result consumed by the driver's aggregation.
// It is reported and logged, never persisted.
type Outcome struct {
	Resource Resource
	Kind     OutcomeKind
	Record   ProvenanceRecord
	Stage    Stage
	Err      error
	DryRun   bool
}
