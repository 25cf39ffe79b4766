// Package topics defines the curated topic taxonomy the scout iterates over.
package topics

import (
	"math/rand"
	"sort"
)

// Hubs groups scouting topics by discipline hub. The hub name is used by
// backfill runs to select a slice of the taxonomy; the scout flattens the
// map and iterates every topic.
var Hubs = map[string][]string{
	"Engineering & Systems": {
		"Biomedical Engineering",
		"Electrical Engineering",
		"Mechanical Engineering",
		"Automotive Engineering",
		"Software Engineering",
		"Robotics",
		"Power Electronics",
		"Civil Engineering",
	},
	"Computing & Software": {
		"Artificial Intelligence",
		"Data Science",
		"Cybersecurity",
		"Quantum Computing",
		"Brain Computer Interface",
		"Bioinformatics",
	},
	"Life Sciences": {
		"Biology",
		"Neuroscience",
		"Biotechnology",
		"Biochemistry",
		"Molecular Biology",
		"Bionics",
		"Medicine",
		"Cardiovascular Medicine",
		"Oncology",
		"Nanomedicine",
	},
	"Physical Sciences": {
		"Physics",
		"Chemistry",
		"Material Science",
		"Nuclear Fusion",
		"Nuclear Fission",
		"Nuclear Physics",
		"Astronomy",
		"Environmental Science",
		"Climatology",
		"Energy",
	},
}

// All returns every topic across all hubs, deduplicated and sorted.
func All() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range Hubs {
		for _, topic := range group {
			if _, ok := seen[topic]; ok {
				continue
			}
			seen[topic] = struct{}{}
			out = append(out, topic)
		}
	}
	sort.Strings(out)
	return out
}

// HubNames returns the hub names in sorted order.
func HubNames() []string {
	names := make([]string, 0, len(Hubs))
	for name := range Hubs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForHub returns the topics under a hub, or nil if the hub is unknown.
func ForHub(hub string) []string {
	group, ok := Hubs[hub]
	if !ok {
		return nil
	}
	out := make([]string, len(group))
	copy(out, group)
	return out
}

// Random picks a topic uniformly at random from the full taxonomy using
// the provided source. Used to seed an automatic scout when a user search
// matches a topic for the first time.
func Random(rng *rand.Rand) string {
	all := All()
	return all[rng.Intn(len(all))]
}
