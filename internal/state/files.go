package state

import (
	"sort"
	"strings"
)

// FileRequests is the request count for one static file path.
type FileRequests struct {
	Path     string
	Requests int
}

// FileRequests tallies logged requests outside the /api surface by path,
// most requested first. Ties sort by path.
func (s Snapshot) FileRequests() []FileRequests {
	counts := make(map[string]int)
	for _, e := range s.Logs {
		if isAPIPath(e.Path) {
			continue
		}
		counts[e.Path]++
	}

	out := make([]FileRequests, 0, len(counts))
	for p, n := range counts {
		out = append(out, FileRequests{Path: p, Requests: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Requests != out[j].Requests {
			return out[i].Requests > out[j].Requests
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func isAPIPath(p string) bool {
	p = strings.TrimSpace(p)
	return p == "" || p == "/api" || strings.HasPrefix(p, "/api/")
}
