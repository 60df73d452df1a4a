package crawl

// linkSet is an insertion-ordered set of links.
type linkSet struct {
	items []string
	seen  map[string]bool
}

func newLinkSet(capacity int) *linkSet {
	return &linkSet{
		items: make([]string, 0, capacity),
		seen:  make(map[string]bool, capacity),
	}
}

// Add inserts link unless it is empty or already present.
func (s *linkSet) Add(link string) {
	if link == "" || s.seen[link] {
		return
	}
	s.seen[link] = true
	s.items = append(s.items, link)
}

// All returns the links in insertion order.
func (s *linkSet) All() []string {
	return s.items
}
