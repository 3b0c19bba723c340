package estimate

// Review is the caller-side policy verdict for a confidence score.
type Review string

const (
	// ReviewNone: accept silently.
	ReviewNone Review = "none"
	// ReviewFlag: accept, but flag for user review.
	ReviewFlag Review = "flag"
	// ReviewConfirm: require manual confirmation before the item enters a
	// session.
	ReviewConfirm Review = "confirm"
)

const (
	acceptThreshold  = 0.8
	confirmThreshold = 0.6
)

// ReviewFor maps a confidence score to the review policy: >=0.8 accept,
// [0.6,0.8) flag, <0.6 confirm.
func ReviewFor(confidence float64) Review {
	switch {
	case confidence >= acceptThreshold:
		return ReviewNone
	case confidence >= confirmThreshold:
		return ReviewFlag
	default:
		return ReviewConfirm
	}
}
