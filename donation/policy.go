package donation

import "github.com/Arman3747/BloodConnect-Server/models"

// Policy lists, per status, the statuses a request may move to. Statuses
// absent as keys are terminal.
type Policy map[string][]string

// DefaultPolicy is the lifecycle used in production. A pending request must
// be taken in progress before it can be done; done and canceled are
// terminal.
func DefaultPolicy() Policy {
	return Policy{
		models.DonationPending:    {models.DonationInProgress, models.DonationCanceled},
		models.DonationInProgress: {models.DonationPending, models.DonationDone, models.DonationCanceled},
	}
}

// Known reports whether status is a lifecycle status at all.
func Known(status string) bool {
	switch status {
	case models.DonationPending, models.DonationInProgress, models.DonationDone, models.DonationCanceled:
		return true
	}
	return false
}

func (p Policy) Allows(from, to string) bool {
	for _, next := range p[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves status.
func (p Policy) Terminal(status string) bool {
	return len(p[status]) == 0
}
