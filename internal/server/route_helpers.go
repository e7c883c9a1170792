package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/ternarybob/seoforge/internal/handlers"
)

// MethodRouter dispatches one path to a handler per HTTP method. Other
// methods get a JSON 405 with an Allow header.
type MethodRouter map[string]http.HandlerFunc

func (m MethodRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handler, ok := m[r.Method]; ok {
		handler(w, r)
		return
	}
	w.Header().Set("Allow", m.allowed())
	handlers.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func (m MethodRouter) allowed() string {
	methods := make([]string, 0, len(m))
	for method := range m {
		methods = append(methods, method)
	}
	slices.Sort(methods)
	return strings.Join(methods, ", ")
}
