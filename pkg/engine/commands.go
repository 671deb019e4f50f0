package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chainsafe/advent-agent/internal/metrics"
	"github.com/chainsafe/advent-agent/pkg/auth"
	"github.com/chainsafe/advent-agent/pkg/campaign"
	"github.com/chainsafe/advent-agent/pkg/transport"
)

// handleCommand answers slash commands. Commands never change progression
// state; /hint only advances the hint counter and /wallet only sets the
// payout wallet.
func (e *engine) handleCommand(ctx context.Context, p *campaign.Participant, st State, msg Message) ([]transport.Outbound, error) {
	switch msg.Command {
	case CommandHelp:
		return replies(msgHelp), nil
	case CommandLeaderboard:
		entries, err := e.store.Leaderboard(ctx, e.cfg.LeaderboardTop)
		if err != nil {
			return nil, fmt.Errorf("failed to load leaderboard: %w", err)
		}
		return replies(leaderboardMessage(entries)), nil
	case CommandStats:
		stats, err := e.store.Stats(ctx, p.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to load stats: %w", err)
		}
		return replies(statsMessage(stats)), nil
	case CommandHint:
		return e.hint(ctx, p)
	case CommandPuzzle:
		return e.currentPuzzle(p, st), nil
	case CommandWallet:
		return e.linkWallet(ctx, p, msg.Args)
	default:
		return replies(msgHelp), nil
	}
}

func (e *engine) hint(ctx context.Context, p *campaign.Participant) ([]transport.Outbound, error) {
	puzzle, ok := e.catalog.Puzzle(p.CurrentDay)
	if !ok {
		metrics.Hints.WithLabelValues("no_puzzle").Inc()
		return replies(msgNoPuzzle), nil
	}

	used, granted, err := e.store.ConsumeHint(ctx, p.Address, puzzle.Day, puzzle.HintCount(), e.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to consume hint: %w", err)
	}
	if !granted {
		metrics.Hints.WithLabelValues("exhausted").Inc()
		return replies(msgHintsExhausted), nil
	}

	text, ok := puzzle.Hint(used - 1)
	if !ok {
		metrics.Hints.WithLabelValues("exhausted").Inc()
		return replies(msgHintsExhausted), nil
	}
	metrics.Hints.WithLabelValues("served").Inc()
	return replies(hintMessage(text)), nil
}

// currentPuzzle repeats an already delivered puzzle without touching any ledger.
func (e *engine) currentPuzzle(p *campaign.Participant, st State) []transport.Outbound {
	switch {
	case !p.Paid:
		return replies(msgLocked)
	case p.PendingRewardChoice:
		return replies(msgRewardPrompt)
	}
	puzzle, ok := e.catalog.Puzzle(p.CurrentDay)
	if !ok {
		return replies(msgCompleted)
	}
	if !st.PuzzleOutstanding {
		return replies(msgAwaitSend)
	}
	return replies(campaign.PuzzleMessage(puzzle))
}

func (e *engine) linkWallet(ctx context.Context, p *campaign.Participant, args []string) ([]transport.Outbound, error) {
	message := auth.WalletLinkMessage(p.Address)
	if len(args) != 2 {
		return replies(fmt.Sprintf(msgWalletUsage, message)), nil
	}

	wallet, err := auth.VerifyWalletLink(p.Address, args[0], args[1])
	if err != nil {
		e.logger.Info("Rejected wallet link",
			zap.String("participant", p.Address),
			zap.String("wallet", args[0]),
			zap.Error(err))
		return replies(fmt.Sprintf(msgWalletBad, message)), nil
	}

	if err := e.store.SetWallet(ctx, p.Address, wallet); err != nil {
		return nil, fmt.Errorf("failed to set wallet: %w", err)
	}
	return replies(fmt.Sprintf(msgWalletLinked, ShortAddress(wallet))), nil
}
