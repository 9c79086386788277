package challenge

import "time"

// Status is the lifecycle state of a challenge.
type Status string

const (
	// StatusPending is a peer challenge awaiting the challenged user.
	StatusPending Status = "pending"

	// StatusOpen is an admin challenge accepting participants.
	StatusOpen Status = "open"

	// StatusActive is a challenge in play.
	StatusActive Status = "active"

	// StatusPendingAdmin is awaiting an admin resolution.
	StatusPendingAdmin Status = "pending_admin"

	// StatusCompleted is terminal: resolved with a payout.
	StatusCompleted Status = "completed"

	// StatusCancelled is terminal: declined or withdrawn, escrow released.
	StatusCancelled Status = "cancelled"

	// StatusDisputed is raised by a participant against an active challenge.
	StatusDisputed Status = "disputed"
)

// transitions is the full set of legal status changes. Terminal states have
// no entry.
var transitions = map[Status][]Status{
	StatusPending:      {StatusActive, StatusCancelled},
	StatusOpen:         {StatusActive, StatusCancelled, StatusPendingAdmin, StatusCompleted},
	StatusActive:       {StatusCompleted, StatusDisputed},
	StatusPendingAdmin: {StatusCompleted},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

const (
	// SideYes backs the challenge outcome happening.
	SideYes = "yes"

	// SideNo backs it not happening.
	SideNo = "no"
)

// Challenge is a wager between two peers, or an admin-created open challenge
// that any user may join. Stakes are coin amounts held in escrow until
// resolution; cancellation is a status transition, never a delete.
type Challenge struct {
	ID               string
	ChallengerID     string
	ChallengedID     string
	Title            string
	Description      string
	Category         string
	Stake            int64
	Status           Status
	AdminCreated     bool
	DueDate          time.Time
	Pinned           bool
	BonusAmount      int64
	ParticipantCount int
	WinnerID         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Participant is a user who joined an admin challenge on a side.
type Participant struct {
	ChallengeID string
	UserID      string
	Side        string
	Stake       int64
	JoinedAt    time.Time
}
