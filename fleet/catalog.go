// Package fleet manages the lifecycle of the atc service group: starting and
// stopping the docker-compose process group, reading its live topology, and
// merging that topology with the fixed service catalog into status snapshots.
package fleet

// Service is the name of one logical service in the managed group.
type Service string

// The fixed catalog of logical services. The set is compile-time constant:
// services are declared here, never created or destroyed at runtime.
const (
	PDS           Service = "pds"
	PLC           Service = "plc"
	AppView       Service = "appview"
	BGS           Service = "bgs"
	SocialApp     Service = "social-app"
	Ozone         Service = "ozone"
	FeedGenerator Service = "feed-generator"
	Jetstream     Service = "jetstream"
)

// Catalog lists every logical service in a stable order. Status aggregation
// iterates this slice so that snapshots always cover the full catalog,
// whether or not a service is deployed.
var Catalog = []Service{
	PDS,
	PLC,
	AppView,
	BGS,
	SocialApp,
	Ozone,
	FeedGenerator,
	Jetstream,
}

// CatalogNames returns the catalog as plain strings.
func CatalogNames() []string {
	names := make([]string, len(Catalog))
	for i, s := range Catalog {
		names[i] = string(s)
	}
	return names
}
