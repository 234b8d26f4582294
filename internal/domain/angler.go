package domain

// AnglerRank is the account-wide progression level of a user
type AnglerRank string

const (
	AnglerBeginner AnglerRank = "beginner"
	AnglerAmateur  AnglerRank = "amateur"
	AnglerPro      AnglerRank = "pro"
)

// Promotion thresholds
const (
	amateurMinCatches = 5
	amateurMinSize    = 15
	proMinCatches     = 15
	proMinSize        = 25
)

// AnglerStats accumulates a user's catches across all posts
type AnglerStats struct {
	TotalCatches int        `json:"total_catches"`
	MaxSize      float64    `json:"max_size"`
	Rank         AnglerRank `json:"rank"`
}

// WithCatch returns the stats after one more catch of the given size.
// A single catch promotes at most one level.
func (s AnglerStats) WithCatch(size float64) AnglerStats {
	next := AnglerStats{
		TotalCatches: s.TotalCatches + 1,
		MaxSize:      max(s.MaxSize, size),
		Rank:         s.Rank,
	}
	if next.Rank == "" {
		next.Rank = AnglerBeginner
	}

	switch {
	case next.Rank == AnglerBeginner && next.TotalCatches >= amateurMinCatches && next.MaxSize >= amateurMinSize:
		next.Rank = AnglerAmateur
	case next.Rank == AnglerAmateur && next.TotalCatches >= proMinCatches && next.MaxSize >= proMinSize:
		next.Rank = AnglerPro
	}
	return next
}
