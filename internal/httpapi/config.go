package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// requestTimeout bounds a whole completion request, queueing included.
// Zero means no additional timeout beyond server/connection timeouts.
var requestTimeout time.Duration

// SetRequestTimeout sets the completion request timeout (0 disables).
func SetRequestTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	requestTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server. Empty method
// and header lists fall back to what the API needs.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
	if len(corsAllowedMethods) == 0 {
		corsAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(corsAllowedHeaders) == 0 {
		corsAllowedHeaders = []string{"Content-Type", "Authorization", "X-Request-Id", "X-Log-Level"}
	}
}
