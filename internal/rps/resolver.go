package rps

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/rps-backend/internal/apperror"
)

type Choice string

const (
	Rock    Choice = "rock"
	Paper   Choice = "paper"
	Scissor Choice = "scissor"
)

type Outcome string

const (
	Win  Outcome = "WIN"
	Lose Outcome = "LOSE"
	Draw Outcome = "DRAW"
)

// Choices lists the canonical choices in a stable order.
var Choices = []Choice{Rock, Paper, Scissor}

// beats maps each choice to the one it defeats.
var beats = map[Choice]Choice{
	Rock:    Scissor,
	Paper:   Rock,
	Scissor: Paper,
}

func (that Choice) Valid() bool {
	_, ok := beats[that]
	return ok
}

// ParseChoice accepts a canonical choice name. Surrounding spaces and letter case are ignored,
// "scissors" is not accepted.
func ParseChoice(raw string) (Choice, error) {
	choice := Choice(strings.ToLower(strings.TrimSpace(raw)))
	if !choice.Valid() {
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidChoice, raw)
	}

	return choice, nil
}

// Resolve - returns the outcome of mine against opponent.
func Resolve(mine, opponent Choice) Outcome {
	if mine == opponent {
		return Draw
	}

	if beats[mine] == opponent {
		return Win
	}

	return Lose
}
