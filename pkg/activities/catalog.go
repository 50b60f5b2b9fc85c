package activities

import "strings"

// CatalogEntry is one suggested activity from the built-in catalog.
type CatalogEntry struct {
	Name        string `json:"name"`
	DurationMin int    `json:"duration"`
	XP          int    `json:"xp"`
	Description string `json:"description"`
}

// longSessionMin is the available-time threshold above which duration
// filtering is skipped entirely.
const longSessionMin = 60

// catalog maps interest categories to suggested activities.
var catalog = map[string][]CatalogEntry{
	"environment": {
		{Name: "Beach Cleanup", DurationMin: 60, XP: 50, Description: "Help clean local beaches"},
		{Name: "Tree Planting", DurationMin: 120, XP: 100, Description: "Plant trees in your community"},
		{Name: "Recycling Drive", DurationMin: 30, XP: 30, Description: "Organize a recycling collection"},
	},
	"education": {
		{Name: "Tutor Students", DurationMin: 60, XP: 75, Description: "Help students with homework"},
		{Name: "Read to Kids", DurationMin: 30, XP: 40, Description: "Read stories at local library"},
		{Name: "Teach Tech Skills", DurationMin: 90, XP: 80, Description: "Teach basic computer skills"},
	},
	"community": {
		{Name: "Food Bank Volunteer", DurationMin: 120, XP: 90, Description: "Help sort and distribute food"},
		{Name: "Senior Center Visit", DurationMin: 60, XP: 60, Description: "Spend time with seniors"},
		{Name: "Community Garden", DurationMin: 90, XP: 70, Description: "Help maintain community garden"},
	},
	"general": {
		{Name: "Litter Pickup Walk", DurationMin: 30, XP: 35, Description: "Pick up litter in your neighborhood"},
		{Name: "Charity Event Helper", DurationMin: 180, XP: 120, Description: "Assist at charity events"},
		{Name: "Animal Shelter Support", DurationMin: 60, XP: 65, Description: "Help care for shelter animals"},
	},
}

// Suggest returns catalog activities for an interest category that fit the
// available time. Unknown interests fall back to the general category;
// sessions of an hour or more skip the duration filter.
func Suggest(interests string, timeAvailableMin int) (string, []CatalogEntry) {
	category := strings.ToLower(interests)
	entries, ok := catalog[category]
	if !ok {
		category = "general"
		entries = catalog[category]
	}

	filtered := make([]CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if e.DurationMin <= timeAvailableMin || timeAvailableMin >= longSessionMin {
			filtered = append(filtered, e)
		}
	}
	return category, filtered
}
