// Package price holds the marketplace's money value.
//
// Prices are kept as an integer count of kuruş so that the Lira/Kuruş split
// used by the listing forms round-trips exactly.
package price

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
)

// Price is an amount in kuruş (1/100 of a lira).
type Price int64

var (
	ErrNegative = errors.New("price must not be negative")
	ErrSyntax   = errors.New("price is not a decimal number")
)

// MaxLira is the largest lira amount a Price can hold.
const MaxLira = math.MaxInt64/100 - 1

// FromLira builds a price from its two parts. lira must not exceed [MaxLira].
func FromLira(lira, kurus int64) Price {
	return Price(lira*100 + kurus)
}

func (p Price) Lira() int64  { return int64(p) / 100 }
func (p Price) Kurus() int64 { return int64(p) % 100 }

// String renders the decimal form the backend speaks, e.g. "1234.50".
func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", p.Lira(), p.Kurus())
}

var trPrinter = message.NewPrinter(language.Turkish)

// Format renders the price for display the way tr-TR currency formatting does: "₺1.234,50".
func (p Price) Format() string {
	return fmt.Sprintf("₺%s,%02d", trPrinter.Sprintf("%d", p.Lira()), p.Kurus())
}

// Parse reads a non-negative decimal such as "12", "12.5" or "1234.567".
//
// Digits past the kuruş are truncated.
func Parse(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegative
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, ErrSyntax
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, ErrSyntax
	}

	var lira int64
	if whole != "" {
		var err error
		lira, err = strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("error parsing lira: %w", ErrSyntax)
		}
	}
	if lira > MaxLira {
		return 0, fmt.Errorf("lira out of range: %w", ErrSyntax)
	}

	frac = (frac + "00")[:2]
	kurus, _ := strconv.ParseInt(frac, 10, 64)

	return FromLira(lira, kurus), nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// Split builds a price from the two inputs of the listing form.
//
// The lira input may carry thousands separators ("1.234"); the kuruş input may
// be empty, meaning zero. The result has to be positive.
func Split(lira, kurus string) (Price, error) {
	var (
		details []bazerrs.Detail
		l, k    int64
	)

	digits := unformatLira(lira)
	l, err := strconv.ParseInt(digits, 10, 64)
	switch {
	case digits == "" || err != nil && !errors.Is(err, strconv.ErrRange):
		details = append(details, bazerrs.Detail{Field: "lira", Error: "Lira part must be non-negative."})
	case err != nil || l > MaxLira:
		details = append(details, bazerrs.Detail{Field: "lira", Error: "Lira part is too large."})
	}

	if kurus != "" {
		n, err := strconv.ParseInt(kurus, 10, 64)
		switch {
		case err != nil || n < 0 || n > 99:
			details = append(details, bazerrs.Detail{Field: "kurus", Error: "Kurus must be between 0 and 99."})
		case len(kurus) > 2 && kurus != "00":
			details = append(details, bazerrs.Detail{Field: "kurus", Error: "Kurus can have at most 2 digits."})
		default:
			k = n
		}
	}
	if err := bazerrs.Invalid("invalid price", details); err != nil {
		return 0, err
	}

	p := FromLira(l, k)
	if p <= 0 {
		return 0, bazerrs.Invalid("invalid price", []bazerrs.Detail{{Field: "lira", Error: "Price must be a positive number."}})
	}

	return p, nil
}

// unformatLira drops everything but digits: "1.234" and "1 234" both become "1234".
func unformatLira(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// MarshalJSON writes the price as a JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalJSON accepts a number or a numeric string. null leaves the price untouched.
func (p *Price) UnmarshalJSON(byts []byte) error {
	s := string(byts)
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)

	// Exponent forms never come from the backend, but a float literal might.
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("error parsing price %q: %w", s, ErrSyntax)
		}
		s = strconv.FormatFloat(f, 'f', 2, 64)
	}

	parsed, err := Parse(s)
	if err != nil {
		return fmt.Errorf("error parsing price %q: %w", s, err)
	}
	*p = parsed

	return nil
}
