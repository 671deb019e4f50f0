package engine

import (
	"strings"

	"github.com/chainsafe/advent-agent/pkg/campaign"
	"github.com/chainsafe/advent-agent/pkg/transport"
)

// Kind is the classified meaning of an inbound message.
type Kind string

const (
	KindCommand          Kind = "command"
	KindPaymentReference Kind = "payment_reference"
	KindPuzzleAnswer     Kind = "puzzle_answer"
	KindRewardChoice     Kind = "reward_choice"
	KindFreeText         Kind = "free_text"
	// KindIgnored covers non-text payloads and malformed payment confirmations.
	KindIgnored Kind = "ignored"
)

// Command is a slash command understood in every state.
type Command string

const (
	CommandHelp        Command = "/help"
	CommandLeaderboard Command = "/leaderboard"
	CommandStats       Command = "/stats"
	CommandHint        Command = "/hint"
	CommandPuzzle      Command = "/puzzle"
	CommandWallet      Command = "/wallet"
)

var exactCommands = map[string]Command{
	string(CommandHelp):        CommandHelp,
	string(CommandLeaderboard): CommandLeaderboard,
	string(CommandStats):       CommandStats,
	string(CommandHint):        CommandHint,
	string(CommandPuzzle):      CommandPuzzle,
}

// State is the participant context the classifier needs.
type State struct {
	Paid                bool
	PendingRewardChoice bool
	// PuzzleOutstanding is true when the current day's puzzle was delivered.
	PuzzleOutstanding bool
}

// Message is a classified inbound message.
type Message struct {
	Kind    Kind
	Command Command
	Args    []string
	Payment *transport.PaymentReference
	Choice  campaign.RewardPath
	// Text is the trimmed message text.
	Text string
	// Reason explains why a message was ignored.
	Reason error
}

// Classify assigns one meaning to an inbound message. Payment confirmations
// win over everything, then commands, then the participant's state decides.
func Classify(in transport.Inbound, st State) Message {
	switch in.Kind {
	case transport.KindPaymentReference:
		if err := in.Payment.Validate(); err != nil {
			return Message{Kind: KindIgnored, Reason: err}
		}
		return Message{Kind: KindPaymentReference, Payment: in.Payment}
	case transport.KindText:
	default:
		return Message{Kind: KindIgnored}
	}

	text := strings.TrimSpace(in.Text)
	if ref, ok, err := transport.ParsePaymentReference(text); ok {
		if err != nil {
			return Message{Kind: KindIgnored, Text: text, Reason: err}
		}
		return Message{Kind: KindPaymentReference, Payment: ref, Text: text}
	}

	if cmd, args, ok := parseCommand(text); ok {
		return Message{Kind: KindCommand, Command: cmd, Args: args, Text: text}
	}

	switch {
	case !st.Paid:
		return Message{Kind: KindFreeText, Text: text}
	case st.PendingRewardChoice:
		if path, ok := parseChoice(text); ok {
			return Message{Kind: KindRewardChoice, Choice: path, Text: text}
		}
		return Message{Kind: KindFreeText, Text: text}
	case st.PuzzleOutstanding:
		return Message{Kind: KindPuzzleAnswer, Text: text}
	default:
		return Message{Kind: KindFreeText, Text: text}
	}
}

func parseCommand(text string) (Command, []string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	if cmd, ok := exactCommands[strings.ToLower(text)]; ok {
		return cmd, nil, true
	}
	fields := strings.Fields(text)
	if strings.EqualFold(fields[0], string(CommandWallet)) {
		return CommandWallet, fields[1:], true
	}
	return "", nil, false
}

// parseChoice checks "nice" before "naughty", so text mentioning both picks the safe path.
func parseChoice(text string) (campaign.RewardPath, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "nice"):
		return campaign.RewardPathSafe, true
	case strings.Contains(lower, "naughty"):
		return campaign.RewardPathRisky, true
	default:
		return "", false
	}
}
