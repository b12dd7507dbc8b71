package domain

// Registry collections that may be synced into live collections.
var registryCollections = []string{
	"mediums",
	"boards",
	"courses",
	"subjects",
	"chapters",
	"quiz_sets",
	"exams",
	"screens",
	"themes",
}

// RegistryCollections returns the allow-list in canonical order.
func RegistryCollections() []string {
	out := make([]string, len(registryCollections))
	copy(out, registryCollections)
	return out
}

// IsRegistryCollection reports whether name is on the allow-list.
func IsRegistryCollection(name string) bool {
	for _, c := range registryCollections {
		if c == name {
			return true
		}
	}
	return false
}
