package handles

// Stats is a snapshot of cache activity. Counters are cumulative across
// epochs; Namespaces and Collections count what is cached right now.
type Stats struct {
	Epoch         uint64 `json:"epoch"`
	Identity      int64  `json:"identity"`
	Invalidations uint64 `json:"invalidations"`

	ConnectionBuilds uint64 `json:"connection_builds"`
	NamespaceBuilds  uint64 `json:"namespace_builds"`
	CollectionBuilds uint64 `json:"collection_builds"`
	BuildFailures    uint64 `json:"build_failures"`

	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`

	Connected   bool `json:"connected"`
	Namespaces  int  `json:"namespaces"`
	Collections int  `json:"collections"`
}
