package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// Origins lists allowed origins. Empty or a "*" entry allows any origin.
	Origins []string
	// Methods defaults to GET, POST, DELETE, OPTIONS.
	Methods []string
	// Headers lists allowed request headers. When empty the preflight's
	// Access-Control-Request-Headers is echoed.
	Headers []string
	// Expose lists response headers readable by the browser.
	Expose []string
	// MaxAge is the preflight cache lifetime in seconds; 0 omits the header.
	MaxAge int
}

// CORS answers preflight requests and decorates cross-origin responses.
// Credentials are never allowed: gateway credentials travel in headers, not
// cookies.
func CORS(cfg CORSConfig) Middleware {
	allowAll := len(cfg.Origins) == 0
	allowed := make(map[string]string, len(cfg.Origins))
	for _, o := range cfg.Origins {
		if o == "*" {
			allowAll = true
			continue
		}
		allowed[strings.ToLower(o)] = o
	}

	methods := strings.Join(cfg.Methods, ", ")
	if methods == "" {
		methods = "GET, POST, DELETE, OPTIONS"
	}
	headers := strings.Join(cfg.Headers, ", ")
	expose := strings.Join(cfg.Expose, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	allowOrigin := func(origin string) string {
		if allowAll {
			return "*"
		}
		return allowed[strings.ToLower(origin)]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !allowAll {
				h.Add("Vary", "Origin")
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			ao := allowOrigin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if ao != "" {
					h.Set("Access-Control-Allow-Origin", ao)
					h.Set("Access-Control-Allow-Methods", methods)
					switch {
					case headers != "":
						h.Set("Access-Control-Allow-Headers", headers)
					case r.Header.Get("Access-Control-Request-Headers") != "":
						h.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
					}
					if maxAge != "" {
						h.Set("Access-Control-Max-Age", maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if ao != "" {
				h.Set("Access-Control-Allow-Origin", ao)
				if expose != "" {
					h.Set("Access-Control-Expose-Headers", expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
