package domain

// Country describes one supported market: its settlement currency and the
// mobile-money providers the processor can collect from there.
type Country struct {
	Code      string
	Currency  string
	Providers []string
}

var countries = map[string]Country{
	"KE": {Code: "KE", Currency: "KES", Providers: []string{"MPESA", "AIRTEL"}},
	"UG": {Code: "UG", Currency: "UGX", Providers: []string{"MTN", "AIRTEL"}},
	"TZ": {Code: "TZ", Currency: "TZS", Providers: []string{"VODACOM", "TIGO", "AIRTEL"}},
	"GH": {Code: "GH", Currency: "GHS", Providers: []string{"MTN", "VODAFONE", "AIRTELTIGO"}},
	"NG": {Code: "NG", Currency: "NGN", Providers: []string{"MTN", "AIRTEL", "GLO"}},
}

// LookupCountry returns the market definition for an ISO 3166 alpha-2 code.
func LookupCountry(code string) (Country, bool) {
	c, ok := countries[code]
	return c, ok
}

// SupportsProvider reports whether the provider operates in the country.
func (c Country) SupportsProvider(provider string) bool {
	for _, p := range c.Providers {
		if p == provider {
			return true
		}
	}
	return false
}
