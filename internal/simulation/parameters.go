package simulation

import (
	"fmt"
	"strconv"
)

// Base parameter values, keyed by the conventional electrochemistry
// parameter names of each published set.
var chen2020 = map[string]float64{
	"Nominal cell capacity [A.h]":       5.0,
	"Current function [A]":              5.0,
	"Upper voltage cut-off [V]":         4.2,
	"Lower voltage cut-off [V]":         2.5,
	"Ambient temperature [K]":           298.15,
	"Initial temperature [K]":           298.15,
	"Contact resistance [Ohm]":          0.01,
	"Electrode height [m]":              0.065,
	"Electrode width [m]":               1.58,
	"Negative electrode thickness [m]":  8.52e-05,
	"Positive electrode thickness [m]":  7.56e-05,
	"Separator thickness [m]":           1.2e-05,
	"Negative electrode porosity":       0.25,
	"Positive electrode porosity":       0.335,
	"Initial state of charge":           1.0,
}

var sulzer2019 = map[string]float64{
	"Nominal cell capacity [A.h]":      17.0,
	"Current function [A]":             1.0,
	"Upper voltage cut-off [V]":        2.42,
	"Lower voltage cut-off [V]":        1.75,
	"Ambient temperature [K]":          294.85,
	"Initial temperature [K]":          294.85,
	"Contact resistance [Ohm]":         0.05,
	"Negative electrode thickness [m]": 0.0009,
	"Positive electrode thickness [m]": 0.00125,
	"Separator thickness [m]":          0.0015,
	"Negative electrode porosity":      0.53,
	"Positive electrode porosity":      0.57,
	"Initial state of charge":          1.0,
}

func baseParameters(chem Chemistry) map[string]float64 {
	var src map[string]float64
	switch chem {
	case ChemistryLithiumIon:
		src = chen2020
	case ChemistryLeadAcid:
		src = sulzer2019
	default:
		return nil
	}
	params := make(map[string]float64, len(src))
	for k, v := range src {
		params[k] = v
	}
	return params
}

// FilterOverrides keeps only the requested entries whose key belongs to
// the valid key set. Unrecognized keys are silently dropped, never
// reported: override application is best-effort. Values are not
// validated here; type errors surface when the solver consumes them.
func FilterOverrides(validKeys map[string]struct{}, requested map[string]interface{}) map[string]interface{} {
	filtered := make(map[string]interface{})
	for k, v := range requested {
		if _, ok := validKeys[k]; ok {
			filtered[k] = v
		}
	}
	return filtered
}

// ApplyOverrides writes filtered override values onto the base mapping,
// last-write-wins per key. A non-numeric value is an error at this
// point, not earlier.
func ApplyOverrides(base map[string]float64, filtered map[string]interface{}) error {
	for k, v := range filtered {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", k, err)
		}
		base[k] = f
	}
	return nil
}

func toFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}
