package simulation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectModel(t *testing.T) {
	t.Run("AllSupportedPairs", func(t *testing.T) {
		cases := map[string][]string{
			"lithium-ion": {"SPM", "SPMe", "DFN", "MPM", "MSMR"},
			"lead-acid":   {"LOQS", "Full"},
		}
		for chemistry, variants := range cases {
			for _, variant := range variants {
				handle, err := SelectModel(chemistry, variant)
				require.NoError(t, err, "%s/%s", chemistry, variant)
				assert.Equal(t, Chemistry(chemistry), handle.Chemistry)
				assert.Equal(t, Variant(variant), handle.Variant)
			}
		}
	})

	t.Run("ParameterSetPerChemistry", func(t *testing.T) {
		liIon, err := SelectModel("lithium-ion", "DFN")
		require.NoError(t, err)
		assert.Equal(t, "Chen2020", liIon.ParameterSet)

		leadAcid, err := SelectModel("lead-acid", "LOQS")
		require.NoError(t, err)
		assert.Equal(t, "Sulzer2019", leadAcid.ParameterSet)
	})

	t.Run("UnknownChemistry", func(t *testing.T) {
		_, err := SelectModel("sodium-ion", "SPM")
		assert.True(t, errors.Is(err, ErrUnsupportedConfiguration))
	})

	t.Run("VariantFromWrongChemistry", func(t *testing.T) {
		// Full belongs only to lead-acid; no fallback is substituted.
		_, err := SelectModel("lithium-ion", "Full")
		assert.True(t, errors.Is(err, ErrUnsupportedConfiguration))

		_, err = SelectModel("lead-acid", "DFN")
		assert.True(t, errors.Is(err, ErrUnsupportedConfiguration))
	})

	t.Run("UnknownVariant", func(t *testing.T) {
		_, err := SelectModel("lithium-ion", "P2D")
		assert.True(t, errors.Is(err, ErrUnsupportedConfiguration))
	})
}

func TestModelHandleParameters(t *testing.T) {
	handle, err := SelectModel("lithium-ion", "SPM")
	require.NoError(t, err)

	keys := handle.BaseParameterKeys()
	assert.Contains(t, keys, "Nominal cell capacity [A.h]")
	assert.Contains(t, keys, "Current function [A]")

	// Mutating the returned copy must not touch the handle.
	params := handle.BaseParameters()
	params["Nominal cell capacity [A.h]"] = -1
	fresh := handle.BaseParameters()
	assert.Equal(t, 5.0, fresh["Nominal cell capacity [A.h]"])
}

func TestCatalog(t *testing.T) {
	chems := Chemistries()
	assert.Len(t, chems, 2)

	assert.Len(t, VariantsFor(ChemistryLithiumIon), 5)
	assert.Len(t, VariantsFor(ChemistryLeadAcid), 2)
	assert.Equal(t, "Chen2020", ParameterSetFor(ChemistryLithiumIon))
	assert.Equal(t, "Sulzer2019", ParameterSetFor(ChemistryLeadAcid))
}
