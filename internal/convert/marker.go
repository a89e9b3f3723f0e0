package convert

import (
	"encoding/json"
	"fmt"
)

// MarkerKind classifies why a marker replaced a value.
type MarkerKind string

const (
	KindDepthLimit      MarkerKind = "depth-limit"
	KindCollectionLimit MarkerKind = "collection-limit"
	KindObjectLimit     MarkerKind = "object-limit"
	KindCycle           MarkerKind = "cycle"
)

// Marker is an in-band placeholder emitted where a bound was reached or a
// cycle was detected. It serializes as a descriptive string so truncation
// stays visible in responses instead of failing them.
type Marker struct {
	Kind MarkerKind
	Text string
}

func (m Marker) String() string { return m.Text }

func (m Marker) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Text)
}

func DepthMarker() Marker {
	return Marker{Kind: KindDepthLimit, Text: "[depth limit reached]"}
}

func CollectionLimitMarker(omitted int) Marker {
	return Marker{
		Kind: KindCollectionLimit,
		Text: fmt.Sprintf("[collection size limit reached, %d elements omitted]", omitted),
	}
}

func ObjectLimitMarker(max int) Marker {
	return Marker{
		Kind: KindObjectLimit,
		Text: fmt.Sprintf("[object count limit of %d reached]", max),
	}
}

func CycleMarker(description string) Marker {
	return Marker{
		Kind: KindCycle,
		Text: fmt.Sprintf("[cycle detected, reference to %s]", description),
	}
}
