// Package flow implements the CampoBot conversation state machine.
//
// This file holds the pure field validators used by the registration wizard
// and the mini-flow step sequences. Each validator takes the raw user input
// and returns the normalized value to store, or an error whose message is
// shown to the user verbatim.
package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonDigitRegex = regexp.MustCompile(`\D`)
	dateRegex     = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// brazilianStates is the set of valid two-letter state codes.
var brazilianStates = map[string]bool{
	"AC": true, "AL": true, "AP": true, "AM": true, "BA": true, "CE": true,
	"DF": true, "ES": true, "GO": true, "MA": true, "MT": true, "MS": true,
	"MG": true, "PA": true, "PB": true, "PR": true, "PE": true, "PI": true,
	"RJ": true, "RN": true, "RS": true, "RO": true, "RR": true, "SC": true,
	"SP": true, "SE": true, "TO": true,
}

// validateNonEmpty accepts any non-blank input.
func validateNonEmpty(input string) (string, error) {
	v := strings.TrimSpace(input)
	if v == "" {
		return "", fmt.Errorf("this answer cannot be empty")
	}
	return v, nil
}

// validateCPF checks the Brazilian CPF format: 11 digits with two valid
// check digits, and not a repeated-digit sequence.
func validateCPF(input string) (string, error) {
	digits := nonDigitRegex.ReplaceAllString(input, "")
	if len(digits) != 11 {
		return "", fmt.Errorf("the CPF must have 11 digits")
	}
	allSame := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return "", fmt.Errorf("this CPF is not valid")
	}
	if !cpfCheckDigit(digits, 9) || !cpfCheckDigit(digits, 10) {
		return "", fmt.Errorf("this CPF is not valid")
	}
	return digits, nil
}

// cpfCheckDigit verifies the check digit at position pos (9 or 10).
func cpfCheckDigit(digits string, pos int) bool {
	sum := 0
	for i := 0; i < pos; i++ {
		sum += int(digits[i]-'0') * (pos + 1 - i)
	}
	expected := 11 - sum%11
	if expected >= 10 {
		expected = 0
	}
	return int(digits[pos]-'0') == expected
}

// validateDate accepts dates in DD/MM/YYYY form with plausible components.
func validateDate(input string) (string, error) {
	v := strings.TrimSpace(input)
	m := dateRegex.FindStringSubmatch(v)
	if m == nil {
		return "", fmt.Errorf("please use the DD/MM/YYYY format, e.g. 05/03/1984")
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 || year > 2100 {
		return "", fmt.Errorf("that date does not look right, please use DD/MM/YYYY")
	}
	return v, nil
}

// validateChoice accepts either the 1-based option number or the option text
// itself (case-insensitive) and returns the canonical option.
func validateChoice(options ...string) func(string) (string, error) {
	return func(input string) (string, error) {
		v := strings.ToLower(strings.TrimSpace(input))
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		for _, opt := range options {
			if v == strings.ToLower(opt) {
				return opt, nil
			}
		}
		return "", fmt.Errorf("please answer one of: %s", strings.Join(options, ", "))
	}
}

// validatePhone accepts phone numbers with 10 to 13 digits.
func validatePhone(input string) (string, error) {
	digits := nonDigitRegex.ReplaceAllString(input, "")
	if len(digits) < 10 || len(digits) > 13 {
		return "", fmt.Errorf("the phone number must have between 10 and 13 digits, including the area code")
	}
	return digits, nil
}

// validateDecimal accepts a positive decimal number, comma or dot separated.
func validateDecimal(input string) (string, error) {
	v := strings.ReplaceAll(strings.TrimSpace(input), ",", ".")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return "", fmt.Errorf("please send a positive number, e.g. 50 or 2.5")
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// validateInteger accepts a non-negative whole number.
func validateInteger(input string) (string, error) {
	v := strings.TrimSpace(input)
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return "", fmt.Errorf("please send a whole number, e.g. 120")
	}
	return strconv.Itoa(n), nil
}

// validateState accepts a two-letter Brazilian state code.
func validateState(input string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(input))
	if !brazilianStates[v] {
		return "", fmt.Errorf("please send the two-letter state code, e.g. BA or SP")
	}
	return v, nil
}

// validatePostalCode accepts an 8-digit CEP.
func validatePostalCode(input string) (string, error) {
	digits := nonDigitRegex.ReplaceAllString(input, "")
	if len(digits) != 8 {
		return "", fmt.Errorf("the postal code must have 8 digits")
	}
	return digits, nil
}

// validateEmail accepts a minimally well-formed email address.
func validateEmail(input string) (string, error) {
	v := strings.TrimSpace(input)
	if !emailRegex.MatchString(v) {
		return "", fmt.Errorf("that does not look like a valid email address")
	}
	return strings.ToLower(v), nil
}

// parseYesNo interprets a yes/no answer. The second return is false when the
// input is neither.
func parseYesNo(input string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "yes", "y", "yeah", "sure", "1", "sim":
		return true, true
	case "no", "n", "nope", "2", "nao", "não":
		return false, true
	}
	return false, false
}
