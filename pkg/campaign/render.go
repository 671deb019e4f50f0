package campaign

import "fmt"

// PuzzleMessage renders the text delivered for a puzzle. The engine and the
// daily broadcast use the same rendering.
func PuzzleMessage(p *Puzzle) string {
	return fmt.Sprintf("🎄 Day %d Puzzle 🎄\n\n%s\n\nReply with your answer!", p.Day, p.Question)
}
