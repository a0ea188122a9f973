package sorting

import (
	"errors"
	"fmt"

	"github.com/foxseedlab/brackman/internal/faf"
)

var (
	ErrNotInChannel        = errors.New("member is not in a voice channel")
	ErrWrongCategory       = errors.New("voice channel is outside the sort category")
	ErrUnknownGameIdentity = errors.New("no faf identity for member")
	ErrNoMatch             = errors.New("player has no faf match")
	ErrMatchEnded          = errors.New("faf match has ended")
	ErrAlreadySorting      = errors.New("match is already being sorted")
	ErrNoChannelsAvailable = errors.New("no team channels available")
)

type MatchEndedError struct {
	Match *faf.Match
}

func (e *MatchEndedError) Error() string {
	return fmt.Sprintf("faf match %s (%s) has ended", e.Match.ID, e.Match.Name)
}

func (e *MatchEndedError) Is(target error) bool {
	return target == ErrMatchEnded
}

// AlreadySortingError is an expected outcome when two members sort the same match.
type AlreadySortingError struct {
	MatchID   string
	MatchName string
	Holder    string
}

func (e *AlreadySortingError) Error() string {
	return fmt.Sprintf("match %s is already being sorted by %s", e.MatchID, e.Holder)
}

func (e *AlreadySortingError) Is(target error) bool {
	return target == ErrAlreadySorting
}

type ChannelProvisionError struct {
	Team int
	Err  error
}

func (e *ChannelProvisionError) Error() string {
	return fmt.Sprintf("team %d channel: %v", e.Team, e.Err)
}

func (e *ChannelProvisionError) Unwrap() error {
	return e.Err
}

type MoveError struct {
	UserID    string
	ChannelID string
	Err       error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %s to %s: %v", e.UserID, e.ChannelID, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}
