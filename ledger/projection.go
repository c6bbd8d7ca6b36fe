package ledger

import "github.com/phillip/pawshome-go/models"

// ProjectContributions narrows each campaign's contribution list to the
// donor's own entries and drops campaigns left empty. The input slice and
// the contribution slices it references are not modified.
func ProjectContributions(campaigns []models.Campaign, donor string) []models.Campaign {
	projected := make([]models.Campaign, 0, len(campaigns))
	for _, campaign := range campaigns {
		var mine []models.Contribution
		for _, c := range campaign.Contributions {
			if c.Donor == donor {
				mine = append(mine, c)
			}
		}
		if len(mine) == 0 {
			continue
		}
		campaign.Contributions = mine
		projected = append(projected, campaign)
	}
	return projected
}
