package language

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	v, err := ParseValue(`["a", 2]`)
	require.NoError(t, err)
	require.Equal(t, ListValue, v.Kind)
	require.Len(t, v.Children, 2)
	require.Equal(t, "a", v.Children[0].Value.Raw)
	require.Equal(t, IntValue, v.Children[1].Value.Kind)

	_, err = ParseValue(`1) { g`)
	require.Error(t, err)
}
