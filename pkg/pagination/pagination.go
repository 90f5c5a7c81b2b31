package pagination

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows any page query can request.
	MaxPageSize = 100
)

// State tracks the page-number bookkeeping for a listing. TotalCount and
// TotalPages come from the server-reported count after every fetch.
type State struct {
	CurrentPage int
	PageSize    int
	TotalCount  int
	TotalPages  int
}

// NewState returns page 1 with the normalized page size.
func NewState(pageSize int) State {
	return State{CurrentPage: 1, PageSize: NormalizePageSize(pageSize)}
}

// NormalizePageSize enforces the configured default and maximum sizes.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// Recompute replaces the totals from a server-reported count.
func (s *State) Recompute(totalCount int) {
	if totalCount < 0 {
		totalCount = 0
	}
	s.TotalCount = totalCount
	s.TotalPages = TotalPages(totalCount, s.PageSize)
}

// Reset returns the listing to the first page, keeping the page size.
func (s *State) Reset() {
	s.CurrentPage = 1
}

// SetPage moves to the given page; non-positive pages clamp to 1.
func (s *State) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.CurrentPage = page
}

// TotalPages returns ceil(totalCount / pageSize).
func TotalPages(totalCount, pageSize int) int {
	size := NormalizePageSize(pageSize)
	if totalCount <= 0 {
		return 0
	}
	return (totalCount + size - 1) / size
}
