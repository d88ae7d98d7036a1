package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeaturesHasSet(t *testing.T) {
	var f Features
	require.False(t, f.Has(FeatureBulkMemory))

	f = f.Set(FeatureBulkMemory, true)
	require.True(t, f.Has(FeatureBulkMemory))
	require.False(t, f.Has(FeatureReferenceTypes))

	f = f.Set(FeatureBulkMemory, false)
	require.False(t, f.Has(FeatureBulkMemory))
}

func TestFeaturesDefault(t *testing.T) {
	require.True(t, FeaturesDefault.Has(FeatureBulkMemory))
	require.True(t, FeaturesDefault.Has(FeatureReferenceTypes))
	require.True(t, FeaturesDefault.Has(FeatureSignExtensionOps))
	require.True(t, FeaturesDefault.Has(FeatureNonTrappingFloatToInt))
	require.False(t, FeaturesDefault.Has(FeatureMemory64))
}
