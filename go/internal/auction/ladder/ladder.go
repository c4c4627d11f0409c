// Package ladder computes legal next bid amounts from a fixed ascending
// sequence of rungs capped by a ceiling.
package ladder

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Ladder is an ascending list of legal bid amounts plus the ceiling that
// applies once the rungs run out. Multiple teams may bid the ceiling.
type Ladder struct {
	Rungs         []int64 `yaml:"rungs"`
	Ceiling       int64   `yaml:"ceiling"`
	CeilingMargin int64   `yaml:"ceiling_margin"`
}

// Default is the ladder used by the temple auction host console
func Default() Ladder {
	return Ladder{
		Rungs: []int64{
			1000, 2000, 3000, 4000, 5000, 6000, 7000, 8000, 9000, 10000,
			12000, 14000, 16000, 18000, 20000,
			25000, 30000, 35000, 40000,
		},
		Ceiling:       50000,
		CeilingMargin: 15000,
	}
}

// Load reads a ladder definition from a YAML file
func Load(path string) (Ladder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Ladder{}, fmt.Errorf("failed to read ladder file: %w", err)
	}

	var l Ladder
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Ladder{}, fmt.Errorf("failed to parse ladder: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Ladder{}, err
	}
	return l, nil
}

// Validate checks that the rungs ascend strictly and stay below the ceiling
func (l Ladder) Validate() error {
	if len(l.Rungs) == 0 {
		return errors.New("ladder has no rungs")
	}
	if l.CeilingMargin < 0 {
		return errors.New("ladder ceiling margin must not be negative")
	}
	if !sort.SliceIsSorted(l.Rungs, func(i, j int) bool { return l.Rungs[i] < l.Rungs[j] }) {
		return errors.New("ladder rungs must be ascending")
	}
	for i := 1; i < len(l.Rungs); i++ {
		if l.Rungs[i] == l.Rungs[i-1] {
			return fmt.Errorf("duplicate ladder rung %d", l.Rungs[i])
		}
	}
	if l.Rungs[0] <= 0 {
		return errors.New("ladder rungs must be positive")
	}
	if last := l.Rungs[len(l.Rungs)-1]; l.Ceiling < last {
		return fmt.Errorf("ladder ceiling %d is below the top rung %d", l.Ceiling, last)
	}
	return nil
}

// NextBidAmount returns the amount the next bid must be.
//
// With no bidder the opening bid is the smallest rung at or above the base
// price, or the base price itself when it sits above every rung. With a
// bidder it is the smallest rung strictly above currentBid, falling back to
// the ceiling once the rungs are exhausted.
func (l Ladder) NextBidAmount(currentBid, basePrice int64, hasBidder bool) int64 {
	if !hasBidder {
		for _, rung := range l.Rungs {
			if rung >= basePrice {
				return rung
			}
		}
		return basePrice
	}

	for _, rung := range l.Rungs {
		if rung > currentBid && rung >= basePrice {
			return rung
		}
	}
	return max(l.Ceiling, basePrice)
}

// NextBidOptions returns up to n legal amounts in ascending order. Close to
// the ceiling the ceiling itself is always offered so teams can tie there.
func (l Ladder) NextBidOptions(currentBid, basePrice int64, hasBidder bool, n int) []int64 {
	if n <= 0 {
		return nil
	}

	options := make([]int64, 0, n)
	for _, rung := range l.Rungs {
		if len(options) == n {
			break
		}
		if rung < basePrice {
			continue
		}
		if hasBidder && rung <= currentBid {
			continue
		}
		options = append(options, rung)
	}
	if !hasBidder && len(options) == 0 {
		options = append(options, basePrice)
	}

	if len(options) < n && currentBid >= l.Ceiling-l.CeilingMargin {
		if len(options) == 0 || options[len(options)-1] < l.Ceiling {
			options = append(options, l.Ceiling)
		}
	}

	if len(options) == 0 {
		options = append(options, l.NextBidAmount(currentBid, basePrice, hasBidder))
	}
	for i := range options {
		options[i] = max(options[i], basePrice)
	}
	if len(options) > n {
		options = options[:n]
	}
	return options
}
