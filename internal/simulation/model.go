package simulation

import (
	"errors"
	"fmt"
)

// Chemistry is the battery technology family. The set is closed.
type Chemistry string

const (
	ChemistryLithiumIon Chemistry = "lithium-ion"
	ChemistryLeadAcid   Chemistry = "lead-acid"
)

// Variant is a mathematical model formulation within a chemistry
type Variant string

const (
	VariantSPM  Variant = "SPM"
	VariantSPMe Variant = "SPMe"
	VariantDFN  Variant = "DFN"
	VariantMPM  Variant = "MPM"
	VariantMSMR Variant = "MSMR"
	VariantLOQS Variant = "LOQS"
	VariantFull Variant = "Full"
)

// ErrUnsupportedConfiguration is returned for an unknown chemistry or a
// variant outside the chemistry's set. No fallback model is substituted.
var ErrUnsupportedConfiguration = errors.New("unsupported configuration")

var variantsByChemistry = map[Chemistry][]Variant{
	ChemistryLithiumIon: {VariantSPM, VariantSPMe, VariantDFN, VariantMPM, VariantMSMR},
	ChemistryLeadAcid:   {VariantLOQS, VariantFull},
}

var parameterSetByChemistry = map[Chemistry]string{
	ChemistryLithiumIon: "Chen2020",
	ChemistryLeadAcid:   "Sulzer2019",
}

// ModelHandle is a constructed but not yet parameterized model instance
// together with its base parameter set.
type ModelHandle struct {
	Chemistry    Chemistry
	Variant      Variant
	ParameterSet string

	baseParams map[string]float64
}

// SelectModel maps a (chemistry, variant name) pair onto a model handle.
// A variant is only meaningful within its owning chemistry: selecting
// "Full" for lithium-ion fails even though the name exists elsewhere.
func SelectModel(chemistry, variantName string) (*ModelHandle, error) {
	chem := Chemistry(chemistry)
	variants, ok := variantsByChemistry[chem]
	if !ok {
		return nil, fmt.Errorf("%w: unknown battery type %q", ErrUnsupportedConfiguration, chemistry)
	}

	for _, v := range variants {
		if v == Variant(variantName) {
			return &ModelHandle{
				Chemistry:    chem,
				Variant:      v,
				ParameterSet: parameterSetByChemistry[chem],
				baseParams:   baseParameters(chem),
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: model %q is not available for battery type %q",
		ErrUnsupportedConfiguration, variantName, chemistry)
}

// BaseParameterKeys returns the set of parameter keys recognized by the
// handle's base parameter set.
func (h *ModelHandle) BaseParameterKeys() map[string]struct{} {
	keys := make(map[string]struct{}, len(h.baseParams))
	for k := range h.baseParams {
		keys[k] = struct{}{}
	}
	return keys
}

// BaseParameters returns a copy of the base parameter values
func (h *ModelHandle) BaseParameters() map[string]float64 {
	params := make(map[string]float64, len(h.baseParams))
	for k, v := range h.baseParams {
		params[k] = v
	}
	return params
}

// Chemistries lists the supported chemistries
func Chemistries() []Chemistry {
	return []Chemistry{ChemistryLithiumIon, ChemistryLeadAcid}
}

// VariantsFor lists the model variants of a chemistry
func VariantsFor(chem Chemistry) []Variant {
	variants := variantsByChemistry[chem]
	out := make([]Variant, len(variants))
	copy(out, variants)
	return out
}

// ParameterSetFor returns the base parameter set name for a chemistry
func ParameterSetFor(chem Chemistry) string {
	return parameterSetByChemistry[chem]
}
