package report

import "sort"

// DefaultTopTechnicians caps the leaderboard.
const DefaultTopTechnicians = 10

// TechnicianCount is the number of CLOSED tickets held by one technician.
type TechnicianCount struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Closed   int    `json:"closed"`
}

// TopTechnicians orders counts descending and keeps the first limit entries.
func TopTechnicians(counts []TechnicianCount, limit int) []TechnicianCount {
	if limit <= 0 {
		limit = DefaultTopTechnicians
	}
	out := make([]TechnicianCount, 0, len(counts))
	for _, c := range counts {
		if c.Closed > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Closed != out[j].Closed {
			return out[i].Closed > out[j].Closed
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
