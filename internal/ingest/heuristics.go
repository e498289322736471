package ingest

import (
	"strings"

	"marketpulse/internal/schema"
	"marketpulse/internal/store"
)

// heuristicRule pairs a filename substring with a hardcoded mapping. The
// table mirrors the export formats the system has actually seen: LinkedIn
// CSV exports, Wix-style website reports, and Instagram data-download JSON.
type heuristicRule struct {
	substr   string
	platform store.Platform
	mapping  schema.Mapping
}

var tabularRules = []heuristicRule{
	{
		substr:   "content",
		platform: store.PlatformLinkedIn,
		mapping: schema.Mapping{
			SourceKind:  schema.KindContent,
			TimeKeyPath: "Date",
			Fields: map[store.CanonicalField]string{
				store.FieldImpressions:    "Impressions (total)",
				store.FieldClicks:         "Clicks (total)",
				store.FieldReactions:      "Reactions (total)",
				store.FieldEngagementRate: "Engagement rate (total)",
			},
			Aggregation: schema.LevelPerRow,
		},
	},
	{
		substr:   "followers",
		platform: store.PlatformLinkedIn,
		mapping: schema.Mapping{
			SourceKind:  schema.KindFollowers,
			TimeKeyPath: "Date",
			Fields: map[store.CanonicalField]string{
				store.FieldSponsoredFollowers: "Sponsored followers",
				store.FieldOrganicFollowers:   "Organic followers",
				store.FieldTotalFollowers:     "Total followers",
			},
			Aggregation: schema.LevelPerRow,
		},
	},
	{
		substr:   "visitors",
		platform: store.PlatformLinkedIn,
		mapping: schema.Mapping{
			SourceKind:  schema.KindVisitors,
			TimeKeyPath: "Date",
			Fields: map[store.CanonicalField]string{
				store.FieldPageViews:      "Total page views (total)",
				store.FieldUniqueVisitors: "Total unique visitors (total)",
			},
			Aggregation: schema.LevelPerRow,
		},
	},
	{
		substr:   "blog_table",
		platform: store.PlatformWebsite,
		mapping: schema.Mapping{
			SourceKind:  schema.KindVisitors,
			TimeKeyPath: "Action date",
			Fields: map[store.CanonicalField]string{
				store.FieldPageViews:      "Post views",
				store.FieldUniqueVisitors: "Unique visitors",
			},
			Aggregation: schema.LevelPerRow,
			TimeFormat:  "2/1/2006",
		},
	},
	{
		substr:   "traffic",
		platform: store.PlatformWebsite,
		mapping: schema.Mapping{
			SourceKind:  schema.KindTraffic,
			TimeKeyPath: "Date",
			Fields: map[store.CanonicalField]string{
				store.FieldPageViews:      "Page views",
				store.FieldUniqueVisitors: "Unique visitors",
			},
			Aggregation: schema.LevelAggregate,
		},
	},
}

var hierarchicalRules = []heuristicRule{
	{
		substr:   "posts",
		platform: store.PlatformInstagram,
		mapping: schema.Mapping{
			SourceKind:  schema.KindPosts,
			EntriesPath: "organic_insights_posts",
			TimeKeyPath: "string_map_data.Creation timestamp.timestamp",
			Fields: map[store.CanonicalField]string{
				store.FieldImpressions: "string_map_data.Impressions.value",
				store.FieldLikes:       "string_map_data.Likes.value",
				store.FieldComments:    "string_map_data.Comments.value",
				store.FieldShares:      "string_map_data.Shares.value",
				store.FieldSaves:       "string_map_data.Saves.value",
				store.FieldReach:       "string_map_data.Accounts reached.value",
			},
			Aggregation: schema.LevelPerRow,
		},
	},
	{
		substr:   "audience_insights",
		platform: store.PlatformInstagram,
		mapping: schema.Mapping{
			SourceKind:  schema.KindAudience,
			EntriesPath: "organic_insights_audience",
			TimeKeyPath: "timestamp",
			Fields: map[store.CanonicalField]string{
				store.FieldTotalFollowers: "string_map_data.Followers.value",
			},
			Aggregation: schema.LevelPerRow,
		},
	},
	{
		substr:   "content_interactions",
		platform: store.PlatformInstagram,
		mapping: schema.Mapping{
			SourceKind:  schema.KindInteractions,
			EntriesPath: "organic_insights_interactions",
			TimeKeyPath: "timestamp",
			Fields: map[store.CanonicalField]string{
				store.FieldLikes:    "string_map_data.Likes.value",
				store.FieldComments: "string_map_data.Comments.value",
				store.FieldShares:   "string_map_data.Shares.value",
			},
			Aggregation: schema.LevelPerRow,
		},
	},
	{
		substr:   "live_videos",
		platform: store.PlatformInstagram,
		mapping: schema.Mapping{
			SourceKind:  schema.KindPosts,
			EntriesPath: "organic_insights_live_videos",
			TimeKeyPath: "string_map_data.Creation timestamp.timestamp",
			Fields: map[store.CanonicalField]string{
				store.FieldReach:    "string_map_data.Accounts reached.value",
				store.FieldLikes:    "string_map_data.Likes.value",
				store.FieldComments: "string_map_data.Comments.value",
			},
			Aggregation: schema.LevelPerRow,
		},
	},
	{
		substr:   "profiles_reached",
		platform: store.PlatformInstagram,
		mapping: schema.Mapping{
			SourceKind:  schema.KindReached,
			EntriesPath: "profiles_reached",
			TimeKeyPath: "timestamp",
			Fields: map[store.CanonicalField]string{
				store.FieldReach: "value",
			},
			Aggregation: schema.LevelPerRow,
		},
	},
}

// heuristicFor matches the filename against the rule table for one family.
// Returns nil when no pattern matches, which the caller records as an
// "unclassified" skip.
func heuristicFor(family SourceFamily, name string) *heuristicRule {
	name = strings.ToLower(name)
	rules := tabularRules
	if family == FamilyHierarchical {
		rules = hierarchicalRules
	}
	for i := range rules {
		if strings.Contains(name, rules[i].substr) {
			return &rules[i]
		}
	}
	return nil
}

// platformFor resolves the platform a record is tagged with: the discovery
// layer's tag wins, then the source kind's home platform.
func platformFor(f File, kind schema.SourceKind) store.Platform {
	if f.Platform != "" {
		return f.Platform
	}
	switch kind {
	case schema.KindContent, schema.KindFollowers, schema.KindVisitors:
		return store.PlatformLinkedIn
	case schema.KindPosts, schema.KindAudience, schema.KindInteractions, schema.KindReached:
		return store.PlatformInstagram
	case schema.KindTraffic:
		return store.PlatformWebsite
	default:
		return store.PlatformWebsite
	}
}
