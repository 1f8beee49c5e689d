package shopsearch

import "time"

// Gender values accepted by Query.Gender.
const (
	GenderMens   = "mens"
	GenderWomens = "womens"
	GenderAll    = "all"
)

// PriceRange is an inclusive price interval.
type PriceRange struct {
	Min float64
	Max float64
}

// Query is a hybrid search request. Empty Color and Gender and a nil Price leave
// the corresponding filter unset. Limit 0 takes the configured default.
type Query struct {
	Text   string
	Color  string
	Gender string
	Price  *PriceRange
	Limit  int
}

// Product is the catalogue record attached to a hit.
type Product struct {
	Name          string
	Price         float64
	Colors        string
	Pattern       string
	Description   string
	Gender        string
	ImageBase64   string
	ImageFilename string
}

// Hit is one ranked result.
type Hit struct {
	ID      string
	Score   float64
	Product Product
}

// Timings breaks down where a search spent its time.
type Timings struct {
	Translate time.Duration
	Dense     time.Duration
	Sparse    time.Duration
	Query     time.Duration
	Total     time.Duration
}

// Result is the response of Client.Search.
type Result struct {
	Hits    []Hit
	Timings Timings
}
