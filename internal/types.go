package internal

// NoFamily is the family key used for products that do not state a family.
const NoFamily = "_none"

type Product struct {
	ProductName   string  `json:"product_name"`
	Manufacturer  string  `json:"manufacturer"`
	Family        *string `json:"family,omitempty"`
	Model         string  `json:"model"`
	AnnouncedDate string  `json:"announced-date,omitempty"`

	ManufacturerNorm string `json:"-"`
	FamilyNorm       string `json:"-"`
	ModelNorm        string `json:"-"`
}

type Listing struct {
	Title        string `json:"title"`
	Manufacturer string `json:"manufacturer"`
	Currency     string `json:"currency"`
	Price        string `json:"price"`
}

type MatchState string

const (
	StateNoMatch             MatchState = "NO_MATCH"
	StateManufacturerMatched MatchState = "MANUFACTURER_MATCHED"
	StateFamilyMatched       MatchState = "FAMILY_MATCHED"
	StateModelMatched        MatchState = "MODEL_MATCHED"
)

type MatchOutcome struct {
	State        MatchState
	Manufacturer string
	Family       string
	Model        string
	Product      *Product
}

func (o MatchOutcome) Matched() bool {
	return o.State == StateModelMatched && o.Product != nil
}

// MatchResult maps product_name to the listings resolved to it. Order keeps
// product names in first-match order.
type MatchResult struct {
	Order    []string
	Listings map[string][]*Listing
}

func NewMatchResult() *MatchResult {
	return &MatchResult{Listings: map[string][]*Listing{}}
}

func (r *MatchResult) Append(productName string, listing *Listing) {
	if _, ok := r.Listings[productName]; !ok {
		r.Order = append(r.Order, productName)
	}
	r.Listings[productName] = append(r.Listings[productName], listing)
}

// Merge appends other's groups after r's, keeping other's internal order.
func (r *MatchResult) Merge(other *MatchResult) {
	for _, name := range other.Order {
		for _, l := range other.Listings[name] {
			r.Append(name, l)
		}
	}
}

func (r *MatchResult) Replace(productName string, listings []*Listing) {
	if len(listings) == 0 {
		r.Remove(productName)
		return
	}
	if _, ok := r.Listings[productName]; !ok {
		r.Order = append(r.Order, productName)
	}
	r.Listings[productName] = listings
}

func (r *MatchResult) Remove(productName string) {
	if _, ok := r.Listings[productName]; !ok {
		return
	}
	delete(r.Listings, productName)
	for i, name := range r.Order {
		if name == productName {
			r.Order = append(r.Order[:i], r.Order[i+1:]...)
			break
		}
	}
}

func (r *MatchResult) Len() int {
	n := 0
	for _, l := range r.Listings {
		n += len(l)
	}
	return n
}

type ProductListings struct {
	ProductName string     `json:"product_name"`
	Listings    []*Listing `json:"listings"`
}

type RunCounts struct {
	Listings        int `json:"listings"`
	Matched         int `json:"matched"`
	Dropped         int `json:"dropped"`
	OutliersRemoved int `json:"outliersRemoved"`
	Kept            int `json:"kept"`
	Products        int `json:"products"`
}

type RunRow struct {
	ID        string
	Source    string
	CreatedAt string
	Counts    RunCounts
	Timings   map[string]float64
}

type MatchExportRow struct {
	ListingSeq   int
	ProductName  string
	Manufacturer string
	Family       *string
	Model        string
	Title        string
	ListingManu  string
	Currency     string
	Price        string
}
