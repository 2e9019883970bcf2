package affiliate

// Provider resolves a venue id to its affiliate signup URL. The engine
// attaches the value verbatim without validating or modifying it; an empty
// string means no link is configured.
type Provider interface {
	URL(venueID string) string
}

// Static is a Provider backed by a fixed map, typically filled from config.
type Static struct {
	urls map[string]string
}

// NewStatic copies the given map into a Static provider.
func NewStatic(urls map[string]string) *Static {
	copied := make(map[string]string, len(urls))
	for k, v := range urls {
		copied[k] = v
	}
	return &Static{urls: copied}
}

func (s *Static) URL(venueID string) string {
	return s.urls[venueID]
}
