package permissions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw []byte) PolicyDocument {
	t.Helper()
	var doc PolicyDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestGeneratePolicy_Full(t *testing.T) {
	raw, err := GeneratePolicy(nil, false)
	require.NoError(t, err)
	doc := decode(t, raw)

	require.Len(t, doc.Statement, 2)
	assert.Contains(t, doc.Statement[0].Action, "cloudtrail:LookupEvents")
	assert.Contains(t, doc.Statement[0].Action, "tag:GetResources")
	assert.Contains(t, doc.Statement[0].Action, "sts:GetCallerIdentity")
	assert.Contains(t, doc.Statement[1].Action, "tag:TagResources")
	assert.IsIncreasing(t, doc.Statement[0].Action)
}

func TestGeneratePolicy_ReadOnlyComponent(t *testing.T) {
	raw, err := GeneratePolicy([]string{"audit"}, true)
	require.NoError(t, err)
	doc := decode(t, raw)

	require.Len(t, doc.Statement, 1)
	assert.Equal(t, []string{"cloudtrail:LookupEvents", "sts:GetCallerIdentity"}, doc.Statement[0].Action)
}
