package serviceinfra

import (
	"fmt"
	"net/http"
)

// Route associates an HTTP method + URL pattern with the route-specific
// policies that handle it: typically zero or more route-local policies
// (e.g. a bearer-auth check) followed by the terminal handler. They compose
// onto the shared chain exactly the way the shared chain composes onto
// itself, via each policy's own r.Next(ctx) call.
type Route struct {
	Method   string
	Pattern  string
	Policies []Policy
}

// BuildHandler wires the shared policy chain (logging, auth, throttling,
// metrics, tracing, graceful shutdown, ...) in front of an http.ServeMux
// built from routes. Each incoming request gets its own ReqRes carrying a
// fresh copy of policies+the matched route's own policies.
func BuildHandler(policies []Policy, routes []Route) http.Handler {
	mux := http.NewServeMux()
	for _, route := range routes {
		route := route
		pattern := route.Method + " " + route.Pattern
		mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chain := make([]Policy, 0, len(policies)+len(route.Policies))
			chain = append(chain, policies...)
			chain = append(chain, route.Policies...)
			reqRes := NewReqRes(chain, r, w)
			if err := reqRes.Next(r.Context()); err != nil {
				if _, ok := err.(*ServiceError); !ok {
					fmt.Printf("unhandled error processing %s %s: %v\n", r.Method, r.URL.Path, err)
				}
			}
		}))
	}
	return mux
}
