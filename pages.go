package marvel

import (
	"fmt"
	"math"
)

// MaxLimit is the largest page the gateway serves in one request.
const MaxLimit int = 100

type PageQuery struct {
	Limit  int
	Offset int
}

// NewPageQuery converts a 1-based page number into a limit/offset pair.
func NewPageQuery(page int, size int) (PageQuery, error) {
	if page < 1 {
		return PageQuery{}, fmt.Errorf("%w: page %d is below 1", ErrInvalidInput, page)
	}
	if size <= 0 {
		return PageQuery{}, fmt.Errorf("%w: page size %d must be positive", ErrInvalidInput, size)
	}
	// Offset+Limit must stay within int.
	if page-1 > (math.MaxInt-size)/size {
		return PageQuery{}, fmt.Errorf("%w: page %d of size %d is out of range", ErrInvalidInput, page, size)
	}
	return PageQuery{Limit: size, Offset: (page - 1) * size}, nil
}

func (p PageQuery) valid() error {
	if p.Limit <= 0 {
		return fmt.Errorf("%w: limit %d must be positive", ErrInvalidInput, p.Limit)
	}
	if p.Offset < 0 {
		return fmt.Errorf("%w: offset %d is negative", ErrInvalidInput, p.Offset)
	}
	if p.Offset > math.MaxInt-p.Limit {
		return fmt.Errorf("%w: offset %d is out of range", ErrInvalidInput, p.Offset)
	}
	return nil
}

// SplitPages covers the span of page/size with consecutive queries no
// larger than maxLimit each.
func SplitPages(page int, size int, maxLimit int) ([]PageQuery, error) {
	whole, err := NewPageQuery(page, size)
	if err != nil {
		return nil, err
	}
	if maxLimit <= 0 {
		return nil, fmt.Errorf("%w: max limit %d must be positive", ErrInvalidInput, maxLimit)
	}
	end := whole.Offset + whole.Limit
	pages := make([]PageQuery, 0, (whole.Limit+maxLimit-1)/maxLimit)
	for start := whole.Offset; start < end; start += maxLimit {
		pages = append(pages, PageQuery{
			Offset: start,
			Limit:  min(maxLimit, end-start),
		})
	}
	return pages, nil
}

func (p PageQuery) String() string {
	return fmt.Sprintf("[%d:%d]", p.Offset, p.Offset+p.Limit)
}
