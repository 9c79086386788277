package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bantah-app/bantah/internal/notification"
	"github.com/bantah-app/bantah/internal/wallet"
)

var (
	// ErrInvalidTransition indicates the requested status change is not in
	// the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotAllowed indicates the caller may not perform this action on
	// the challenge.
	ErrNotAllowed = errors.New("not allowed")

	// ErrValidation indicates missing or malformed challenge fields.
	ErrValidation = errors.New("invalid challenge")
)

// Service drives the challenge lifecycle. Every stake movement goes through
// the wallet ledger so escrow and payouts stay reconciled with balances.
type Service struct {
	repo     Repository
	ledger   wallet.Ledger
	notifier notification.Notifier
}

// NewService builds a challenge service.
func NewService(repo Repository, ledger wallet.Ledger, notifier notification.Notifier) *Service {
	return &Service{repo: repo, ledger: ledger, notifier: notifier}
}

// CreateInput captures the fields needed to open a challenge.
type CreateInput struct {
	ChallengerID string
	ChallengedID string
	Title        string
	Description  string
	Category     string
	Stake        int64
	DueDate      time.Time
	AdminCreated bool
	BonusAmount  int64
}

func (in CreateInput) validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Category == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if in.Stake <= 0 {
		return fmt.Errorf("%w: stake must be positive", ErrValidation)
	}
	if in.AdminCreated {
		if in.ChallengedID != "" {
			return fmt.Errorf("%w: admin challenges have no challenged user", ErrValidation)
		}
		return nil
	}
	if in.ChallengedID == "" {
		return fmt.Errorf("%w: challenged user is required", ErrValidation)
	}
	if in.ChallengedID == in.ChallengerID {
		return fmt.Errorf("%w: cannot challenge yourself", ErrValidation)
	}
	return nil
}

// Create opens a challenge. Peer challenges escrow the challenger's stake
// up front and start pending; admin challenges start open with no
// challenger stake.
func (s *Service) Create(ctx context.Context, input CreateInput) (Challenge, error) {
	if err := input.validate(); err != nil {
		return Challenge{}, err
	}

	now := time.Now().UTC()
	ch := Challenge{
		ID:           uuid.NewString(),
		ChallengerID: input.ChallengerID,
		ChallengedID: input.ChallengedID,
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		Stake:        input.Stake,
		Status:       StatusPending,
		AdminCreated: input.AdminCreated,
		DueDate:      input.DueDate,
		BonusAmount:  input.BonusAmount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.AdminCreated {
		ch.Status = StatusOpen
	}

	if !ch.AdminCreated {
		if _, err := s.ledger.Escrow(ctx, ch.ChallengerID, ch.Stake, escrowRef(ch.ID)); err != nil {
			return Challenge{}, err
		}
	}

	if err := s.repo.Create(ctx, ch); err != nil {
		if !ch.AdminCreated {
			return Challenge{}, s.compensate(ctx, ch.ChallengerID, ch.Stake, escrowRef(ch.ID), err)
		}
		return Challenge{}, err
	}

	if !ch.AdminCreated && s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindChallengeInvite,
			Destination: ch.ChallengedID,
			FromUserID:  ch.ChallengerID,
			ChallengeID: ch.ID,
			Title:       "New challenge",
			Body:        fmt.Sprintf("%s for %d coins", ch.Title, ch.Stake),
		})
	}
	return ch, nil
}

// Get fetches a challenge by id.
func (s *Service) Get(ctx context.Context, id string) (Challenge, error) {
	return s.repo.Get(ctx, id)
}

// List returns recent challenges, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status, limit int) ([]Challenge, error) {
	return s.repo.List(ctx, status, limit)
}

// ListForUser returns the user's challenges.
func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]Challenge, error) {
	return s.repo.ListForUser(ctx, userID, limit)
}

// Accept moves a pending peer challenge to active, escrowing the acceptor's
// stake. Only the challenged user may accept.
func (s *Service) Accept(ctx context.Context, id, userID string) (Challenge, error) {
	ch, err := s.repo.Get(ctx, id)
	if err != nil {
		return Challenge{}, err
	}
	if ch.AdminCreated || ch.ChallengedID != userID {
		return Challenge{}, ErrNotAllowed
	}
	if !ch.Status.CanTransition(StatusActive) {
		return Challenge{}, ErrInvalidTransition
	}

	if _, err := s.ledger.Escrow(ctx, userID, ch.Stake, escrowRef(ch.ID)); err != nil {
		return Challenge{}, err
	}

	ch.Status = StatusActive
	if err := s.repo.Update(ctx, ch); err != nil {
		return Challenge{}, s.compensate(ctx, userID, ch.Stake, escrowRef(ch.ID), err)
	}

	s.notify(ctx, notification.KindChallengeAccepted, ch.ChallengerID, userID, ch,
		"Challenge accepted", fmt.Sprintf("%s is on", ch.Title))
	return ch, nil
}

// Decline cancels a pending peer challenge and releases the challenger's
// escrow in full. Only the challenged user may decline.
func (s *Service) Decline(ctx context.Context, id, userID string) (Challenge, error) {
	ch, err := s.repo.Get(ctx, id)
	if err != nil {
		return Challenge{}, err
	}
	if ch.AdminCreated || ch.ChallengedID != userID {
		return Challenge{}, ErrNotAllowed
	}
	if ch.Status != StatusPending || !ch.Status.CanTransition(StatusCancelled) {
		return Challenge{}, ErrInvalidTransition
	}

	ch.Status = StatusCancelled
	if err := s.repo.Update(ctx, ch); err != nil {
		return Challenge{}, err
	}
	if _, err := s.ledger.ReleaseEscrow(ctx, ch.ChallengerID, ch.Stake, escrowRef(ch.ID)); err != nil {
		return Challenge{}, fmt.Errorf("refund challenger stake for cancelled %s: %w", escrowRef(ch.ID), err)
	}

	s.notify(ctx, notification.KindChallengeDeclined, ch.ChallengerID, userID, ch,
		"Challenge declined", fmt.Sprintf("%s was declined", ch.Title))
	return ch, nil
}

// Join adds a participant side to an open admin challenge, escrowing the
// participant's stake.
func (s *Service) Join(ctx context.Context, id, userID, side string, stake int64) (Challenge, error) {
	if side != SideYes && side != SideNo {
		return Challenge{}, fmt.Errorf("%w: side must be yes or no", ErrValidation)
	}
	if stake <= 0 {
		return Challenge{}, fmt.Errorf("%w: stake must be positive", ErrValidation)
	}

	ch, err := s.repo.Get(ctx, id)
	if err != nil {
		return Challenge{}, err
	}
	if !ch.AdminCreated {
		return Challenge{}, ErrNotAllowed
	}
	if ch.Status != StatusOpen {
		return Challenge{}, ErrInvalidTransition
	}

	joined, err := s.repo.HasParticipant(ctx, id, userID)
	if err != nil {
		return Challenge{}, err
	}
	if joined {
		return Challenge{}, ErrAlreadyJoined
	}

	if _, err := s.ledger.Escrow(ctx, userID, stake, escrowRef(ch.ID)); err != nil {
		return Challenge{}, err
	}

	p := Participant{
		ChallengeID: ch.ID,
		UserID:      userID,
		Side:        side,
		Stake:       stake,
		JoinedAt:    time.Now().UTC(),
	}
	if err := s.repo.AddParticipant(ctx, p); err != nil {
		return Challenge{}, s.compensate(ctx, userID, stake, escrowRef(ch.ID), err)
	}

	return s.repo.Get(ctx, id)
}

// Pin marks a challenge as pinned. Admin only, enforced by the caller.
func (s *Service) Pin(ctx context.Context, id string) (Challenge, error) {
	return s.setPinned(ctx, id, true)
}

// Unpin clears the pinned flag.
func (s *Service) Unpin(ctx context.Context, id string) (Challenge, error) {
	return s.setPinned(ctx, id, false)
}

func (s *Service) setPinned(ctx context.Context, id string, pinned bool) (Challenge, error) {
	ch, err := s.repo.Get(ctx, id)
	if err != nil {
		return Challenge{}, err
	}
	ch.Pinned = pinned
	if err := s.repo.Update(ctx, ch); err != nil {
		return Challenge{}, err
	}
	return ch, nil
}

// Resolve completes a challenge and pays the winners from escrow. For peer
// challenges winnerID names the winning user, who receives both stakes. For
// admin challenges winnerID names the winning side; winners get their stake
// back plus a proportional share of the losing pool. A configured bonus is
// split evenly across winners.
func (s *Service) Resolve(ctx context.Context, id, winnerID string) (Challenge, error) {
	ch, err := s.repo.Get(ctx, id)
	if err != nil {
		return Challenge{}, err
	}
	if !ch.Status.CanTransition(StatusCompleted) {
		return Challenge{}, ErrInvalidTransition
	}

	if ch.AdminCreated {
		return s.resolveAdmin(ctx, ch, winnerID)
	}
	return s.resolvePeer(ctx, ch, winnerID)
}

func (s *Service) resolvePeer(ctx context.Context, ch Challenge, winnerID string) (Challenge, error) {
	if winnerID != ch.ChallengerID && winnerID != ch.ChallengedID {
		return Challenge{}, fmt.Errorf("%w: winner must be a participant", ErrValidation)
	}

	ch.Status = StatusCompleted
	ch.WinnerID = winnerID
	if err := s.repo.Update(ctx, ch); err != nil {
		return Challenge{}, err
	}

	if _, err := s.ledger.Payout(ctx, winnerID, 2*ch.Stake, wallet.KindWin, escrowRef(ch.ID)); err != nil {
		return Challenge{}, err
	}
	if ch.BonusAmount > 0 {
		if _, err := s.ledger.Payout(ctx, winnerID, ch.BonusAmount, wallet.KindBonus, escrowRef(ch.ID)); err != nil {
			return Challenge{}, err
		}
	}

	loser := ch.ChallengerID
	if winnerID == ch.ChallengerID {
		loser = ch.ChallengedID
	}
	s.notify(ctx, notification.KindChallengeResolved, winnerID, "", ch,
		"Challenge won", fmt.Sprintf("You won %s", ch.Title))
	s.notify(ctx, notification.KindChallengeResolved, loser, "", ch,
		"Challenge resolved", fmt.Sprintf("%s was resolved", ch.Title))
	return ch, nil
}

func (s *Service) resolveAdmin(ctx context.Context, ch Challenge, winningSide string) (Challenge, error) {
	if winningSide != SideYes && winningSide != SideNo {
		return Challenge{}, fmt.Errorf("%w: winning side must be yes or no", ErrValidation)
	}

	participants, err := s.repo.Participants(ctx, ch.ID)
	if err != nil {
		return Challenge{}, err
	}

	var winnersPool, losersPool int64
	for _, p := range participants {
		if p.Side == winningSide {
			winnersPool += p.Stake
		} else {
			losersPool += p.Stake
		}
	}

	ch.Status = StatusCompleted
	ch.WinnerID = winningSide
	if err := s.repo.Update(ctx, ch); err != nil {
		return Challenge{}, err
	}

	var winners int64
	for _, p := range participants {
		if p.Side == winningSide {
			winners++
		}
	}
	for _, p := range participants {
		if p.Side != winningSide {
			continue
		}
		payout := p.Stake
		if winnersPool > 0 {
			payout += losersPool * p.Stake / winnersPool
		}
		if _, err := s.ledger.Payout(ctx, p.UserID, payout, wallet.KindWin, escrowRef(ch.ID)); err != nil {
			return Challenge{}, err
		}
		if ch.BonusAmount > 0 && winners > 0 {
			share := ch.BonusAmount / winners
			if share > 0 {
				if _, err := s.ledger.Payout(ctx, p.UserID, share, wallet.KindBonus, escrowRef(ch.ID)); err != nil {
					return Challenge{}, err
				}
			}
		}
		s.notify(ctx, notification.KindChallengeResolved, p.UserID, "", ch,
			"Challenge resolved", fmt.Sprintf("%s settled on %s", ch.Title, winningSide))
	}
	return ch, nil
}

// Dispute moves an active challenge to disputed. Only the challenger or the
// challenged user may raise it.
func (s *Service) Dispute(ctx context.Context, id, userID string) (Challenge, error) {
	ch, err := s.repo.Get(ctx, id)
	if err != nil {
		return Challenge{}, err
	}
	if userID != ch.ChallengerID && userID != ch.ChallengedID {
		return Challenge{}, ErrNotAllowed
	}
	if !ch.Status.CanTransition(StatusDisputed) {
		return Challenge{}, ErrInvalidTransition
	}

	ch.Status = StatusDisputed
	if err := s.repo.Update(ctx, ch); err != nil {
		return Challenge{}, err
	}

	counterpart := ch.ChallengerID
	if userID == ch.ChallengerID {
		counterpart = ch.ChallengedID
	}
	s.notify(ctx, notification.KindChallengeDisputed, counterpart, userID, ch,
		"Challenge disputed", fmt.Sprintf("%s is under dispute", ch.Title))
	return ch, nil
}

func (s *Service) notify(ctx context.Context, kind, to, from string, ch Challenge, title, body string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: to,
		FromUserID:  from,
		ChallengeID: ch.ID,
		Title:       title,
		Body:        body,
	})
}

// compensate undoes a stake escrow after a failed persist. The original
// error is returned either way; a failed release is folded in so the stranded
// escrow is visible to the caller and the request log.
func (s *Service) compensate(ctx context.Context, userID string, amount int64, ref string, cause error) error {
	if _, relErr := s.ledger.ReleaseEscrow(ctx, userID, amount, ref); relErr != nil {
		return fmt.Errorf("%w (escrow release for %s also failed: %v)", cause, ref, relErr)
	}
	return cause
}

func escrowRef(id string) string {
	return "challenge:" + id
}
