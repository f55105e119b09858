package browser

import (
	"encoding/json"
	"strings"
)

// Cookie is the shape the fetcher accepts. Browser extension exports carry
// extra fields (hostOnly, storeId, session) that the devtools protocol
// rejects; Normalize drops them by omission.
type Cookie struct {
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Secure         bool    `json:"secure"`
	HTTPOnly       bool    `json:"httpOnly"`
	SameSite       string  `json:"sameSite,omitempty"`
	ExpirationDate float64 `json:"expirationDate,omitempty"`
}

type exportedCookie struct {
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Secure         bool    `json:"secure"`
	HTTPOnly       bool    `json:"httpOnly"`
	SameSite       string  `json:"sameSite"`
	ExpirationDate float64 `json:"expirationDate"`
}

// ParseCookies decodes a browser-exported cookie array and normalises each
// record to the fetcher's accepted shape.
func ParseCookies(raw []byte) ([]Cookie, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var exported []exportedCookie
	if err := json.Unmarshal(raw, &exported); err != nil {
		return nil, err
	}
	out := make([]Cookie, 0, len(exported))
	for _, e := range exported {
		out = append(out, Cookie{
			Domain:         e.Domain,
			Path:           e.Path,
			Name:           e.Name,
			Value:          e.Value,
			Secure:         e.Secure,
			HTTPOnly:       e.HTTPOnly,
			SameSite:       normalizeSameSite(e.SameSite),
			ExpirationDate: e.ExpirationDate,
		})
	}
	return out, nil
}

// normalizeSameSite case-folds the exported value to one of None, Lax,
// Strict. Unknown or unspecified values map to "" so the attribute is
// omitted entirely.
func normalizeSameSite(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none", "no_restriction":
		return "None"
	case "lax":
		return "Lax"
	case "strict":
		return "Strict"
	default:
		return ""
	}
}
