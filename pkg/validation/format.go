// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/keplerfit/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateKernelMode checks if the light-curve kernel mode is supported.
// The empty string selects the default.
func ValidateKernelMode(mode string) error {
	switch mode {
	case "", constants.KernelAuto, constants.KernelNative, constants.KernelInterpreted:
		return nil
	}
	return fmt.Errorf("expected kernel of %s, %s or %s, got %s",
		constants.KernelAuto, constants.KernelNative, constants.KernelInterpreted, mode)
}
