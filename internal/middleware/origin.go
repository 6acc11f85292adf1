package middleware

import (
	"context"
	"net"
	"net/http"

	"server/internal/infra/geoip"
)

const countryKey contextKey = "request_country"

// Origin annotates the request context with the caller's ISO country
// code when a GeoIP resolver is configured. With a nil resolver it is
// a pass-through.
func Origin(resolver geoip.CountryResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver != nil {
				host := r.RemoteAddr
				if h, _, err := net.SplitHostPort(host); err == nil {
					host = h
				}
				if country, err := resolver.CountryCode(host); err == nil && country != "" {
					r = r.WithContext(context.WithValue(r.Context(), countryKey, country))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CountryFromContext returns the resolved country code, if any.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(countryKey).(string); ok {
		return v
	}
	return ""
}
