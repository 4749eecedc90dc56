package petition

import "time"

// MaxTiers is the most support tiers a petition may carry.
const MaxTiers = 3

// Petition is the full aggregate returned by the detail view.
type Petition struct {
	ID                 int64
	Title              string
	Description        string
	CategoryID         int64
	OwnerID            int64
	OwnerFirstName     string
	OwnerLastName      string
	CreationDate       time.Time
	NumberOfSupporters int
	SupportingCost     *int64 // nil when the petition has no tiers
	MoneyRaised        int64
	SupportTiers       []SupportTier
}

// Summary is one ranked row of a petition listing.
type Summary struct {
	ID                 int64
	Title              string
	CategoryID         int64
	OwnerID            int64
	OwnerFirstName     string
	OwnerLastName      string
	CreationDate       time.Time
	NumberOfSupporters int
	SupportingCost     *int64
	MoneyRaised        int64
}

// SupportTier is a priced pledge level of one petition.
type SupportTier struct {
	ID          int64
	PetitionID  int64
	Title       string
	Description string
	Cost        int64
}

// Supporter is an immutable pledge record.
type Supporter struct {
	ID            int64
	PetitionID    int64
	SupportTierID int64
	UserID        int64
	FirstName     string
	LastName      string
	Message       *string
	Timestamp     time.Time
}

// Category is read-only reference data.
type Category struct {
	ID   int64
	Name string
}

// NewPetition is the input for creating a petition with its initial tiers.
type NewPetition struct {
	Title        string
	Description  string
	CategoryID   int64
	SupportTiers []NewTier
}

// NewTier is the input for a tier that does not exist yet.
type NewTier struct {
	Title       string
	Description string
	Cost        int64
}

// PetitionUpdate holds optional fields for a partial petition edit.
// Nil fields keep their current value.
type PetitionUpdate struct {
	Title       *string
	Description *string
	CategoryID  *int64
}

// TierUpdate holds optional fields for a partial tier edit.
// Nil fields keep their current value.
type TierUpdate struct {
	Title       *string
	Description *string
	Cost        *int64
}

// Page is a windowed listing plus the number of matches before windowing.
type Page struct {
	Petitions []Summary
	Count     int
}

func (p *Petition) tier(id int64) (SupportTier, bool) {
	for _, t := range p.SupportTiers {
		if t.ID == id {
			return t, true
		}
	}
	return SupportTier{}, false
}

func (p *Petition) hasTierTitle(title string, exceptID int64) bool {
	for _, t := range p.SupportTiers {
		if t.Title == title && t.ID != exceptID {
			return true
		}
	}
	return false
}
