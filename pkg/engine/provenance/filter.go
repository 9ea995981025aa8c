package provenance

import (
	"strings"

	"github.com/DrSkyle/provtag/pkg/resource"
)

// IsHumanCaller reports whether an event's actor looks like an interactively
// authenticated principal. Email-style identities contain '@'; service
// principals and managed identities do not. Mail-enabled service accounts
// are a known false positive.
func IsHumanCaller(e resource.AuditEvent) bool {
	return e.Caller != nil && strings.Contains(*e.Caller, "@")
}
