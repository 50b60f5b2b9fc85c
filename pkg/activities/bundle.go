// Package activities generates service activity bundles and the default
// suggestion catalog. Generation works standalone; when an MCP bridge is
// supplied the bundle is additionally offered for enrichment, falling back
// to the unenhanced bundle whenever the bridge cannot deliver.
package activities

// Opportunity is a community service opportunity shown in the serve section.
type Opportunity struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Location            string `json:"location"`
	Distance            string `json:"distance"`
	XP                  int    `json:"xp"`
	Duration            string `json:"duration"`
	Date                string `json:"date"`
	Time                string `json:"time"`
	RequiresMultiple    bool   `json:"requiresMultiple,omitempty"`
	TotalRequired       int    `json:"totalRequired,omitempty"`
	ProgressDescription string `json:"progressDescription,omitempty"`

	// Enhanced holds enrichment metadata added by the tool server.
	Enhanced map[string]any `json:"_mcp_enhanced,omitempty"`
}

// CrisisAlert is an urgent volunteering call.
type CrisisAlert struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Urgency    string `json:"urgency"` // high, medium, low
	Location   string `json:"location"`
	XP         int    `json:"xp"`
	Volunteers int    `json:"volunteers"`
	Date       string `json:"date"`
	Time       string `json:"time"`

	Enhanced map[string]any `json:"_mcp_enhanced,omitempty"`
}

// MiniGame is a lightweight self-contained challenge.
type MiniGame struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	XP          int    `json:"xp"`
	Icon        string `json:"icon"`
	Date        string `json:"date"`
	Time        string `json:"time"`

	Enhanced map[string]any `json:"_mcp_enhanced,omitempty"`
}

// Bundle is one generated set of serve-section activities.
type Bundle struct {
	CommunityOpportunities []Opportunity `json:"communityOpportunities"`
	CrisisAlerts           []CrisisAlert `json:"crisisAlerts"`
	MiniGames              []MiniGame    `json:"miniGames"`
}

// DefaultBundle returns the built-in activity set used whenever no
// generated or enhanced bundle is available.
func DefaultBundle() Bundle {
	return Bundle{
		CommunityOpportunities: []Opportunity{
			{
				ID: "1", Title: "Collect Donations for Food Bank",
				Location: "Downtown Community Center", Distance: "0.8 miles",
				XP: 200, Duration: "15 min per item", Date: "Dec 28", Time: "9:00 AM",
				RequiresMultiple: true, TotalRequired: 20, ProgressDescription: "items donated",
			},
			{
				ID: "2", Title: "Park Cleanup",
				Location: "Riverside Park", Distance: "1.2 miles",
				XP: 100, Duration: "2 hours", Date: "Dec 29", Time: "10:00 AM",
			},
			{
				ID: "3", Title: "Tutor Students",
				Location: "Lincoln Elementary", Distance: "2.1 miles",
				XP: 200, Duration: "4 hours", Date: "Dec 30", Time: "2:00 PM",
			},
			{
				ID: "4", Title: "Recycle Cans & Bottles",
				Location: "City Recycling Center", Distance: "3.5 miles",
				XP: 250, Duration: "5 min per can", Date: "Dec 31", Time: "11:00 AM",
				RequiresMultiple: true, TotalRequired: 50, ProgressDescription: "cans recycled",
			},
		},
		CrisisAlerts: []CrisisAlert{
			{
				ID: "c1", Title: "Prepare Emergency Supply Kits",
				Urgency: "high", Location: "River District",
				XP: 300, Volunteers: 45, Date: "Dec 28", Time: "Immediate",
			},
			{
				ID: "c2", Title: "Emergency Meal Prep",
				Urgency: "medium", Location: "Community Kitchen",
				XP: 180, Volunteers: 12, Date: "Dec 29", Time: "6:00 AM",
			},
		},
		MiniGames: []MiniGame{
			{
				ID: "g1", Title: "Trash Hunter",
				Description: "Pick up 20 pieces of litter in your area",
				XP:          50, Icon: "🗑️", Date: "Anytime", Time: "30 min",
			},
			{
				ID: "g2", Title: "Recycle Challenge",
				Description: "Sort 15 recyclable items correctly",
				XP:          60, Icon: "♻️", Date: "Anytime", Time: "20 min",
			},
		},
	}
}
