package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepairTruncatedString(t *testing.T) {
	raw := `{"sourceKind":"content","mappings":{"impressions":"Impr`
	repaired, err := Repair(raw)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &got))
	require.Equal(t, "content", got["sourceKind"])
	// The incomplete trailing field is dropped, nothing else.
	require.Equal(t, map[string]any{}, got["mappings"])
}

func TestRepairDanglingKey(t *testing.T) {
	raw := `{"a":1,"b":{"c":2},"d":`
	repaired, err := Repair(raw)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &got))
	require.Equal(t, float64(1), got["a"])
	require.NotContains(t, got, "d")
}

func TestRepairOpenArray(t *testing.T) {
	raw := `{"items":[{"x":1},{"x":2},{"x":`
	repaired, err := Repair(raw)
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(repaired)))
}

func TestRepairTrailingComma(t *testing.T) {
	raw := `{"a":1,`
	repaired, err := Repair(raw)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &got))
	require.Len(t, got, 1)
}

func TestRepairAlreadyValid(t *testing.T) {
	raw := `{"a": 1}`
	repaired, err := Repair(raw)
	require.NoError(t, err)
	require.JSONEq(t, raw, repaired)
}

func TestRepairUnrepairable(t *testing.T) {
	for _, raw := range []string{"", "not json at all", "]]]["} {
		if _, err := Repair(raw); err == nil {
			t.Fatalf("expected failure for %q", raw)
		}
	}
}

func TestRepairEscapedQuoteInTruncatedString(t *testing.T) {
	raw := `{"a":"he said \"hi`
	repaired, err := Repair(raw)
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(repaired)))
}
