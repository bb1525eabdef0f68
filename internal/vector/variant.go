package vector

import "strings"

// Variant names one of the mutually exclusive wire shapes a destination may
// expose. Exactly one is active per run.
type Variant string

const (
	VariantDash       Variant = "dash"
	VariantUnderscore Variant = "underscore"
	VariantWeaviate   Variant = "weaviate"
)

// Contract is the destination wire contract fixed for one run.
type Contract struct {
	Variant     Variant
	RegisterURL string
	InsertURL   string
}

type signature struct {
	variant  Variant
	required []string
	register string
	insert   string
}

// signatures are checked in order; newer shapes come first.
var signatures = []signature{
	{
		variant:  VariantDash,
		required: []string{"/v1/vector-io/insert", "/v1/vector-dbs"},
		register: "/v1/vector-dbs",
		insert:   "/v1/vector-io/insert",
	},
	{
		variant:  VariantUnderscore,
		required: []string{"/v1/vector_io/collections", "/v1/vector_io/documents"},
		register: "/v1/vector_io/collections",
		insert:   "/v1/vector_io/documents",
	},
	{
		// Weaviate publishes its paths relative to the /v1 base path.
		variant:  VariantWeaviate,
		required: []string{"/schema", "/batch/objects"},
		register: "/v1/schema",
		insert:   "/v1/batch/objects",
	},
}

// MatchRoutes returns the contract for the first signature whose required
// paths are all present in routes.
func MatchRoutes(baseURL string, routes map[string]struct{}) (Contract, bool) {
	base := strings.TrimRight(baseURL, "/")
	for _, sig := range signatures {
		if !hasAll(routes, sig.required) {
			continue
		}
		return Contract{
			Variant:     sig.variant,
			RegisterURL: base + sig.register,
			InsertURL:   base + sig.insert,
		}, true
	}
	return Contract{}, false
}

func hasAll(routes map[string]struct{}, required []string) bool {
	for _, p := range required {
		if _, ok := routes[p]; !ok {
			return false
		}
	}
	return true
}
