// Package phone validates and formats mobile numbers to canonical
// international form per country.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone number")
var ErrUnknownCountry = errors.New("unknown country")

var nonDigits = regexp.MustCompile(`\D`)

// rule describes one country's numbering plan as the processors accept it:
// the international prefix and the length of the national significant number.
type rule struct {
	prefix      string
	nationalLen int
}

var rules = map[string]rule{
	"KE": {prefix: "254", nationalLen: 9},
	"UG": {prefix: "256", nationalLen: 9},
	"TZ": {prefix: "255", nationalLen: 9},
	"GH": {prefix: "233", nationalLen: 9},
	"NG": {prefix: "234", nationalLen: 10},
}

// Format normalizes a raw phone number to +<prefix><national> for the given
// ISO country code. Accepts local form (07XXXXXXXX), prefixed form
// (2547XXXXXXXX) and international form (+2547XXXXXXXX).
func Format(raw, country string) (string, error) {
	r, ok := rules[strings.ToUpper(country)]
	if !ok {
		return "", ErrUnknownCountry
	}
	s := nonDigits.ReplaceAllString(raw, "")
	if s == "" {
		return "", ErrInvalidPhone
	}
	switch {
	case strings.HasPrefix(s, r.prefix):
		s = s[len(r.prefix):]
	case strings.HasPrefix(s, "0"):
		s = s[1:]
	}
	if len(s) != r.nationalLen {
		return "", ErrInvalidPhone
	}
	return "+" + r.prefix + s, nil
}

// Valid reports whether raw is a plausible number for the country.
func Valid(raw, country string) bool {
	_, err := Format(raw, country)
	return err == nil
}
