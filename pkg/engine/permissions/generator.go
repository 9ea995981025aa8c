package permissions

import (
	"encoding/json"
	"sort"
)

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

type Statement struct {
	Sid      string   `json:"Sid"`
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource string   `json:"Resource"`
}

// GeneratePolicy creates a least-privilege IAM policy for the given
// components (all when empty). readOnly omits the tag-write statement, which
// is enough for dry runs and reports.
func GeneratePolicy(components []string, readOnly bool) ([]byte, error) {
	desired := make(map[string]bool)
	for _, perm := range CorePermissions() {
		desired[perm] = true
	}

	if len(components) == 0 {
		for _, perms := range Catalog {
			for _, p := range perms {
				desired[p] = true
			}
		}
	} else {
		for _, c := range components {
			for _, p := range Catalog[c] {
				desired[p] = true
			}
		}
	}

	policy := PolicyDocument{
		Version: "2012-10-17",
		Statement: []Statement{
			{
				Sid:      "ProvtagRead",
				Effect:   "Allow",
				Action:   sortedKeys(desired),
				Resource: "*",
			},
		},
	}

	if !readOnly {
		write := append([]string(nil), WriteActions...)
		sort.Strings(write)
		policy.Statement = append(policy.Statement, Statement{
			Sid:      "ProvtagTagWrite",
			Effect:   "Allow",
			Action:   write,
			Resource: "*",
		})
	}

	return json.MarshalIndent(policy, "", "  ")
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
