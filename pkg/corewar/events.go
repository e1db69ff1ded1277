package corewar

import "time"

// Broadcast event names for hill mutations.
const (
	EventCreateHill    = "create-hill"
	EventUpdateHill    = "update-hill"
	EventDeleteHill    = "delete-hill"
	EventChallengeHill = "challenge-hill"
)

// Events lists every hill event in the order consumers subscribe to them.
var Events = []string{
	EventCreateHill,
	EventUpdateHill,
	EventDeleteHill,
	EventChallengeHill,
}

// CreateHillBody is the body of a create-hill event.
type CreateHillBody struct {
	Rules Rules `json:"rules"`
}

// UpdateHillBody is the body of an update-hill event.
type UpdateHillBody struct {
	ID       string    `json:"id"`
	Rules    Rules     `json:"rules"`
	Warriors []Warrior `json:"warriors"`
}

// DeleteHillBody is the body of a delete-hill event.
type DeleteHillBody struct {
	ID string `json:"id"`
}

// ChallengeHillBody is the body of a challenge-hill event.
type ChallengeHillBody struct {
	ID      string `json:"id"`
	Redcode string `json:"redcode"`
}

// ChallengeStatus tracks a submitted challenge.
type ChallengeStatus string

const (
	ChallengePending ChallengeStatus = "pending"
)

// Challenge records a warrior submitted against a hill. Battles are run elsewhere.
type Challenge struct {
	ID        string          `json:"id" bson:"_id"`
	HillID    string          `json:"hillId" bson:"hillId"`
	Redcode   string          `json:"redcode" bson:"redcode"`
	Status    ChallengeStatus `json:"status" bson:"status"`
	CreatedAt time.Time       `json:"createdAt" bson:"createdAt"`
}

// DocumentID implements docstore.Identifiable.
func (c Challenge) DocumentID() string {
	return c.ID
}
