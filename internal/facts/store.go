package facts

import (
	"encoding/json"
	"fmt"
)

// DataPoint is one named fact about the research target. An empty Value means
// the fact has not been found yet.
type DataPoint struct {
	Name      string `json:"name"`
	Value     string `json:"value,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Store tracks the data points being researched and the links already
// scraped. It has a single writer path (the update_data tool) and the
// conversation loop is strictly sequential, so no locking is needed.
type Store struct {
	points []DataPoint
	links  []string
}

// NewStore seeds the store with the data point names to research, in order.
func NewStore(names []string) *Store {
	points := make([]DataPoint, 0, len(names))
	for _, name := range names {
		points = append(points, DataPoint{Name: name})
	}
	return &Store{points: points}
}

// UpdateData sets value and reference for every update whose name matches a
// known data point. Unknown names are ignored. Returns a confirmation string
// suitable as tool-result content.
func (s *Store) UpdateData(updates []DataPoint) string {
	for _, update := range updates {
		for i := range s.points {
			if s.points[i].Name == update.Name {
				s.points[i].Value = update.Value
				s.points[i].Reference = update.Reference
			}
		}
	}
	encoded, err := json.Marshal(updates)
	if err != nil {
		return fmt.Sprintf("updated %d data points", len(updates))
	}
	return fmt.Sprintf("updated data: %s", encoded)
}

// PendingNames returns the names of data points still without a value.
func (s *Store) PendingNames() []string {
	var pending []string
	for _, p := range s.points {
		if p.Value == "" {
			pending = append(pending, p.Name)
		}
	}
	return pending
}

// RecordLink remembers a URL that has been scraped.
func (s *Store) RecordLink(url string) {
	s.links = append(s.links, url)
}

// ScrapedLinks returns the URLs scraped so far, in order.
func (s *Store) ScrapedLinks() []string {
	return s.links
}

// All returns a snapshot of every data point.
func (s *Store) All() []DataPoint {
	out := make([]DataPoint, len(s.points))
	copy(out, s.points)
	return out
}
