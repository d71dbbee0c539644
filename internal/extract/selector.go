package extract

// Selector picks the ordered providers to run for a URL.
type Selector struct {
	providers map[string]Provider
	order     []string
	disabled  map[string]bool
}

// NewSelector builds a Selector over providers. An empty order uses
// DefaultOrder. Names in order and disabled go through CanonicalName, so
// "playwright" selects the render provider. Providers named in disabled are
// never selected.
func NewSelector(providers []Provider, order []string, disabled map[string]bool) *Selector {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p != nil {
			byName[p.Name()] = p
		}
	}
	if len(order) == 0 {
		order = DefaultOrder()
	}
	resolved := make([]string, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		n := CanonicalName(name)
		if !seen[n] {
			seen[n] = true
			resolved = append(resolved, n)
		}
	}
	off := make(map[string]bool, len(disabled))
	for name, v := range disabled {
		if v {
			off[CanonicalName(name)] = true
		}
	}
	return &Selector{providers: byName, order: resolved, disabled: off}
}

// Order returns the configured provider order.
func (s *Selector) Order() []string {
	return append([]string(nil), s.order...)
}

// Select returns the providers to run against url. Binary documents get only
// the PDF provider; everything else follows the configured order filtered by
// Supports and the disabled set.
func (s *Selector) Select(url string) []Provider {
	if IsBinaryDocument(url) {
		p, ok := s.providers[ProviderPDF]
		if !ok || s.disabled[ProviderPDF] {
			return nil
		}
		return []Provider{p}
	}

	var out []Provider
	for _, name := range s.order {
		p, ok := s.providers[name]
		if !ok || s.disabled[name] {
			continue
		}
		if !p.Supports(url) {
			continue
		}
		out = append(out, p)
	}
	return out
}
