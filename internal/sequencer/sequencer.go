// Package sequencer draws practice target letters from the practicable alphabet.
package sequencer

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// DefaultAlphabet holds the letters whose canonical ASL sign is a static pose.
// J and Z are traced in the air and cannot be judged from a single frame.
const DefaultAlphabet = "ABCDEFGHIKLMNOPQRSTUVWXY"

// MotionLetters are excluded from every practicable alphabet.
const MotionLetters = "JZ"

// ErrInvalidAlphabet is returned when an alphabet cannot be practiced.
var ErrInvalidAlphabet = errors.New("invalid practice alphabet")

// Sequencer produces target letters. It is safe for concurrent use.
type Sequencer struct {
	letters []string
	mu      sync.Mutex
	rng     *rand.Rand
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithRand sets the random source, mainly for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Sequencer) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// New creates a Sequencer over the given alphabet.
// An empty string selects DefaultAlphabet.
func New(alphabet string, opts ...Option) (*Sequencer, error) {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if err := ValidateAlphabet(alphabet); err != nil {
		return nil, err
	}

	s := &Sequencer{
		letters: strings.Split(strings.ToUpper(alphabet), ""),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ValidateAlphabet checks that alphabet is a non-empty set of distinct static-pose letters.
func ValidateAlphabet(alphabet string) error {
	if alphabet == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAlphabet)
	}

	seen := make(map[rune]bool, len(alphabet))
	for _, r := range strings.ToUpper(alphabet) {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: %q is not a letter", ErrInvalidAlphabet, r)
		}
		if strings.ContainsRune(MotionLetters, r) {
			return fmt.Errorf("%w: %q requires motion", ErrInvalidAlphabet, r)
		}
		if seen[r] {
			return fmt.Errorf("%w: %q repeated", ErrInvalidAlphabet, r)
		}
		seen[r] = true
	}
	return nil
}

// Next draws a letter uniformly at random. When exclude names a letter of the
// alphabet and other letters exist, that letter is never returned.
func (s *Sequencer) Next(exclude string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	exclude = strings.ToUpper(exclude)
	if exclude == "" || len(s.letters) < 2 || !s.Contains(exclude) {
		return s.letters[s.rng.IntN(len(s.letters))]
	}

	// Draw from the alphabet minus one slot and skip over the excluded letter.
	i := s.rng.IntN(len(s.letters) - 1)
	if s.letters[i] == exclude {
		return s.letters[len(s.letters)-1]
	}
	return s.letters[i]
}

// Contains reports whether letter is part of the alphabet.
func (s *Sequencer) Contains(letter string) bool {
	for _, l := range s.letters {
		if l == letter {
			return true
		}
	}
	return false
}

// Letters returns a copy of the practicable alphabet.
func (s *Sequencer) Letters() []string {
	out := make([]string, len(s.letters))
	copy(out, s.letters)
	return out
}

// Alphabet returns the practicable alphabet as a string.
func (s *Sequencer) Alphabet() string {
	return strings.Join(s.letters, "")
}
