package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistryRequiresAllCodes(t *testing.T) {
	buckets := []LookupRow{
		{Code: "GODOWN", Name: "Godown"},
		{Code: "CM_OUT", Name: "Out with delivery staff"},
		{Code: "DEF_FULL", Name: "Defective full holding"},
		{Code: "DEF_EMPTY", Name: "Defective empty holding"},
	}
	states := []LookupRow{
		{Code: "FULL", Name: "Full"},
		{Code: "EMPTY", Name: "Empty"},
		{Code: "DEFECTIVE", Name: "Defective"},
	}

	reg, err := NewRegistry(buckets, states)
	require.NoError(t, err)
	require.Equal(t, "Godown", reg.BucketName(BucketGodown))
	require.Equal(t, "Empty", reg.StateName(StateEmpty))

	_, err = NewRegistry(buckets[:2], states)
	require.ErrorIs(t, err, ErrMissingLookup)

	_, err = NewRegistry(buckets, states[:1])
	require.ErrorIs(t, err, ErrMissingLookup)
}
