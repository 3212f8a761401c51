package engine

import (
	"context"
	"net/url"
	"strings"
)

const (
	customSchemePrefix = "ia-"
	universalLinkHost  = "insertaffiliate.link"
)

// HandleDeepLinkURL recognises Insert Links URLs and hands their short code
// to SetFromShortCode. Two shapes are accepted:
//
//	ia-{companycode}://{shortcode}
//	https://insertaffiliate.link/V1/{companycode}/{shortcode}
//
// It reports whether the URL was one of them. Unrecognised URLs, an
// uninitialised engine, or disabled Insert Links return false with no side
// effects.
func (e *Engine) HandleDeepLinkURL(ctx context.Context, rawURL string) bool {
	c, err := e.ready()
	if err != nil {
		return false
	}
	if !c.settings.InsertLinksEnabled {
		e.log.Debug("insert links is disabled", "url", rawURL)
		return false
	}
	rawURL = strings.TrimSpace(rawURL)
	e.log.Debug("handling insert links url", "url", rawURL)

	company, code, ok := parseCustomScheme(rawURL)
	if !ok {
		company, code, ok = parseUniversalLink(rawURL)
	}
	if !ok {
		e.log.Debug("url is not an insert links url", "url", rawURL)
		return false
	}

	if company != "" && !strings.EqualFold(company, c.settings.CompanyCode) {
		e.log.Warn("company code in url does not match initialized company code",
			"url_company", company, "company_code", c.settings.CompanyCode)
	}
	if err := e.SetFromShortCode(ctx, strings.ToUpper(code)); err != nil {
		e.log.Warn("insert links short code rejected", "code", code, "error", err)
	}
	return true
}

// parseCustomScheme handles ia-{company}://{code}; the code is the text
// after the last "://".
func parseCustomScheme(raw string) (company, code string, ok bool) {
	if !strings.HasPrefix(strings.ToLower(raw), customSchemePrefix) {
		return "", "", false
	}
	sep := strings.Index(raw, "://")
	last := strings.LastIndex(raw, "://")
	if sep < 0 {
		return "", "", false
	}
	company = raw[len(customSchemePrefix):sep]
	code = strings.Trim(raw[last+3:], "/")
	return company, code, true
}

// parseUniversalLink handles .../V1/{company}/{code} on the insertaffiliate.link host.
func parseUniversalLink(raw string) (company, code string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != universalLinkHost && !strings.HasSuffix(host, "."+universalLinkHost) {
		return "", "", false
	}
	segs := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	for i := 0; i+2 < len(segs); i++ {
		if strings.EqualFold(segs[i], "V1") {
			return segs[i+1], segs[i+2], true
		}
	}
	return "", "", false
}
