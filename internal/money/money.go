// Package money converts integer minor-unit amounts (cents) into display
// values and computes the flat VAT surcharge.
//
// Every function is pure. Amounts are int64 cents; major-unit values are only
// produced for display.
package money

import (
	"fmt"
	"strconv"

	"github.com/sakif/donation-backend/internal/apperror"
)

// VATRate is the flat VAT percentage applied to the major-unit amount.
const VATRate = 19

// AmountInMajorUnits truncates a minor-unit amount to whole currency units.
func AmountInMajorUnits(amount int64) int64 {
	return amount / 100
}

// VAT returns the surcharge in minor units.
//
// The rate is applied to whole currency units, so the amount must be an exact
// multiple of 100. Anything else is an invariant violation and is reported as
// apperror.ErrComputation rather than rounded.
func VAT(amount int64) (int64, error) {
	if amount%100 != 0 {
		return 0, apperror.ComputationFailed(
			fmt.Sprintf("cannot calculate VAT for %d without risking rounding issues", amount))
	}
	return (amount / 100) * VATRate, nil
}

// AmountWithVAT returns amount plus VAT, in minor units.
func AmountWithVAT(amount int64) (int64, error) {
	vat, err := VAT(amount)
	if err != nil {
		return 0, err
	}
	return amount + vat, nil
}

// VATInMajorUnits is VAT expressed as a fractional major-unit value.
func VATInMajorUnits(amount int64) (float64, error) {
	vat, err := VAT(amount)
	if err != nil {
		return 0, err
	}
	return float64(vat) / 100, nil
}

// AmountWithVATInMajorUnits is AmountWithVAT expressed in major units.
func AmountWithVATInMajorUnits(amount int64) (float64, error) {
	total, err := AmountWithVAT(amount)
	if err != nil {
		return 0, err
	}
	return float64(total) / 100, nil
}

// FormatCurrency renders whole major units as "$1,234".
func FormatCurrency(major int64) string {
	sign := ""
	if major < 0 {
		sign = "-"
		major = -major
	}
	digits := strconv.FormatInt(major, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return sign + "$" + string(out)
}

// FormatMinor renders a minor-unit amount with cents, as "$1,234.56".
func FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + FormatCurrency(amount/100) + fmt.Sprintf(".%02d", amount%100)
}
