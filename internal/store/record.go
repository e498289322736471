package store

import "time"

// Platform identifies the marketing channel a record belongs to.
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformWebsite   Platform = "website"
)

// Platforms lists every known platform in stable order.
func Platforms() []Platform {
	return []Platform{PlatformLinkedIn, PlatformInstagram, PlatformWebsite}
}

// CanonicalField is a fixed measurement name that source-specific column and
// key names are mapped onto. Unknown source fields never survive ingestion.
type CanonicalField string

const (
	FieldImpressions        CanonicalField = "impressions"
	FieldClicks             CanonicalField = "clicks"
	FieldReactions          CanonicalField = "reactions"
	FieldLikes              CanonicalField = "likes"
	FieldComments           CanonicalField = "comments"
	FieldShares             CanonicalField = "shares"
	FieldSaves              CanonicalField = "saves"
	FieldReach              CanonicalField = "reach"
	FieldEngagementRate     CanonicalField = "engagement_rate"
	FieldPageViews          CanonicalField = "page_views"
	FieldUniqueVisitors     CanonicalField = "unique_visitors"
	FieldBounceRate         CanonicalField = "bounce_rate"
	FieldSponsoredFollowers CanonicalField = "sponsored_followers"
	FieldOrganicFollowers   CanonicalField = "organic_followers"
	FieldTotalFollowers     CanonicalField = "total_followers"
)

// CanonicalFields lists every field a schema mapping may target.
func CanonicalFields() []CanonicalField {
	return []CanonicalField{
		FieldImpressions, FieldClicks, FieldReactions, FieldLikes,
		FieldComments, FieldShares, FieldSaves, FieldReach,
		FieldEngagementRate, FieldPageViews, FieldUniqueVisitors,
		FieldBounceRate, FieldSponsoredFollowers, FieldOrganicFollowers,
		FieldTotalFollowers,
	}
}

// TypedRecord is a platform-tagged, dated measurement carrying canonical
// fields only. Aggregate marks records whose values are pre-aggregated
// totals rather than per-row observations.
type TypedRecord struct {
	Platform  Platform                   `json:"platform"`
	Date      time.Time                  `json:"date"`
	Metrics   map[CanonicalField]float64 `json:"metrics"`
	Aggregate bool                       `json:"aggregate,omitempty"`
}

// Day normalizes the record date to UTC midnight, the store's bucket key.
func (r TypedRecord) Day() time.Time {
	y, m, d := r.Date.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
