package middleware

import (
	"net/http"
	"strings"

	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// LocaleCookie overrides Accept-Language when present.
const LocaleCookie = "NEXT_LOCALE"

var localePrefixes = []string{"en", "th"}

// StripLocalePrefix removes a leading /en or /th segment. It reports false
// when the path has no such prefix.
func StripLocalePrefix(path string) (string, bool) {
	for _, loc := range localePrefixes {
		prefix := "/" + loc
		if path == prefix {
			return "/", true
		}
		if strings.HasPrefix(path, prefix+"/") {
			return path[len(prefix):], true
		}
	}
	return path, false
}

// LocaleRedirect redirects /en/... and /th/... to the unprefixed path with
// the query string preserved. Every other request passes through.
func LocaleRedirect() gin.HandlerFunc {
	return func(c *gin.Context) {
		stripped, ok := StripLocalePrefix(c.Request.URL.Path)
		if !ok {
			c.Next()
			return
		}
		target := stripped
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		c.Redirect(http.StatusTemporaryRedirect, target)
		c.Abort()
	}
}

// LocaleNegotiation picks th or en for the request and stores it under
// util.LocaleKey. The default locale is used when nothing matches.
func LocaleNegotiation(defaultLocale string) gin.HandlerFunc {
	def, err := language.Parse(defaultLocale)
	if err != nil {
		def = util.SupportedLocales[0]
	}
	supported := []language.Tag{def}
	for _, t := range util.SupportedLocales {
		if t != def {
			supported = append(supported, t)
		}
	}
	matcher := language.NewMatcher(supported)

	return func(c *gin.Context) {
		cookie, _ := c.Cookie(LocaleCookie)
		tag, _ := language.MatchStrings(matcher, cookie, c.GetHeader("Accept-Language"))
		base, _ := tag.Base()
		locale := base.String()

		c.Set(util.LocaleKey, locale)
		c.Header("Content-Language", locale)
		c.Next()
	}
}

// GetLocale returns the negotiated locale for the request.
func GetLocale(c *gin.Context) string {
	return c.GetString(util.LocaleKey)
}
