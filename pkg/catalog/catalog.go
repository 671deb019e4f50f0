// Package catalog provides the ordered collection of daily puzzles.
//
// The seed content ships embedded in the binary and is written to the
// puzzles table by a migration; at runtime the catalog is loaded once from
// the store and served from memory.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/chainsafe/advent-agent/pkg/campaign"
)

//go:embed puzzles.yaml
var seedYAML []byte

type entry struct {
	Day        int      `yaml:"day" validate:"min=1"`
	Question   string   `yaml:"question" validate:"required"`
	Answer     string   `yaml:"answer" validate:"required"`
	Hints      []string `yaml:"hints" validate:"max=3"`
	Category   string   `yaml:"category"`
	Difficulty int      `yaml:"difficulty" validate:"min=0"`
}

type document struct {
	Puzzles []entry `yaml:"puzzles" validate:"required,min=1,dive"`
}

// Catalog is an immutable day-indexed puzzle lookup.
type Catalog struct {
	puzzles map[int]*campaign.Puzzle
	last    int
}

// New builds a catalog from puzzles. Days must be unique and contiguous from 1.
func New(puzzles []*campaign.Puzzle) (*Catalog, error) {
	if err := Validate(puzzles); err != nil {
		return nil, err
	}
	c := &Catalog{puzzles: make(map[int]*campaign.Puzzle, len(puzzles))}
	for _, p := range puzzles {
		c.puzzles[p.Day] = p
		if p.Day > c.last {
			c.last = p.Day
		}
	}
	return c, nil
}

// Puzzle returns the puzzle for day.
func (c *Catalog) Puzzle(day int) (*campaign.Puzzle, bool) {
	p, ok := c.puzzles[day]
	return p, ok
}

// Days returns the number of puzzles in the catalog.
func (c *Catalog) Days() int {
	return c.last
}

// Seed returns the embedded seed puzzles.
func Seed() ([]*campaign.Puzzle, error) {
	return Parse(seedYAML)
}

// Parse decodes and validates a YAML puzzle document.
func Parse(data []byte) ([]*campaign.Puzzle, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode puzzles: %w", err)
	}
	if err := validator.New().Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid puzzle document: %w", err)
	}

	puzzles := make([]*campaign.Puzzle, 0, len(doc.Puzzles))
	for _, e := range doc.Puzzles {
		puzzles = append(puzzles, &campaign.Puzzle{
			Day:        e.Day,
			Question:   e.Question,
			Answer:     e.Answer,
			Hints:      e.Hints,
			Category:   e.Category,
			Difficulty: e.Difficulty,
		})
	}
	sort.Slice(puzzles, func(i, j int) bool { return puzzles[i].Day < puzzles[j].Day })

	if err := Validate(puzzles); err != nil {
		return nil, err
	}
	return puzzles, nil
}

// Validate checks day numbering and hint limits.
func Validate(puzzles []*campaign.Puzzle) error {
	seen := make(map[int]bool, len(puzzles))
	for _, p := range puzzles {
		if p.Day < 1 {
			return fmt.Errorf("puzzle day %d: days start at 1", p.Day)
		}
		if seen[p.Day] {
			return fmt.Errorf("puzzle day %d: duplicate day", p.Day)
		}
		if len(p.Hints) > campaign.MaxHints {
			return fmt.Errorf("puzzle day %d: %d hints, at most %d allowed", p.Day, len(p.Hints), campaign.MaxHints)
		}
		seen[p.Day] = true
	}
	for day := 1; day <= len(puzzles); day++ {
		if !seen[day] {
			return fmt.Errorf("puzzle days are not contiguous: day %d missing", day)
		}
	}
	return nil
}
