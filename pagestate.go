package docpaging

const (
	// DefaultPageSize is the page size used when the caller does not set one.
	DefaultPageSize = 10

	// DefaultMaxPageSize caps requested page sizes to protect the store from
	// unreasonably large reads. Requests above it are clamped, not rejected.
	DefaultMaxPageSize = 500
)

// PageConfig holds page-size configuration.
type PageConfig struct {
	DefaultSize int
	MaxSize     int
}

// NewPageConfig returns a PageConfig with the package defaults.
func NewPageConfig() *PageConfig {
	return &PageConfig{
		DefaultSize: DefaultPageSize,
		MaxSize:     DefaultMaxPageSize,
	}
}

// EffectiveSize resolves a requested page size against the config: zero or
// negative falls back to DefaultSize, anything above MaxSize is clamped.
func (c *PageConfig) EffectiveSize(requested int) int {
	if requested <= 0 {
		return c.DefaultSize
	}
	if c.MaxSize > 0 && requested > c.MaxSize {
		return c.MaxSize
	}
	return requested
}

// PageState is the pagination metadata exposed to consumers.
//
// Invariants: TotalPages == ceil(TotalItems/PageSize), and
// 0 <= PageIndex < max(TotalPages, 1).
type PageState struct {
	PageIndex  int
	PageSize   int
	TotalItems int64
	TotalPages int
}

// TotalPages computes the page count for a given item count and page size.
// An empty collection has zero pages.
func TotalPages(totalItems int64, pageSize int) int {
	if totalItems <= 0 || pageSize <= 0 {
		return 0
	}
	return int((totalItems + int64(pageSize) - 1) / int64(pageSize))
}

// ClampPageIndex forces an index back into [0, max(totalPages,1)).
func ClampPageIndex(pageIndex, totalPages int) int {
	if pageIndex >= totalPages {
		pageIndex = totalPages - 1
	}
	if pageIndex < 0 {
		pageIndex = 0
	}
	return pageIndex
}
