package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chainsafe/advent-agent/pkg/campaign"
)

const (
	msgHelp = "🎄 Advent Agent Commands 🎄\n\n" +
		"/help - Show this message\n" +
		"/leaderboard - Show top players\n" +
		"/stats - Show your statistics\n" +
		"/hint - Get a hint for the current puzzle\n" +
		"/puzzle - Show your current puzzle again\n" +
		"/wallet <address> <signature> - Link a payout wallet"

	msgNoPuzzle        = "No puzzle available for this day."
	msgHintsExhausted  = "❌ No more hints available for this puzzle."
	msgIncorrect       = "❌ Not quite! Try again. (Type /hint if you need help)"
	msgCompleted       = "🎄 You have completed all the puzzles! Merry Christmas!"
	msgPaymentPrompt   = "💡 Complete the payment and you'll be automatically unlocked!"
	msgAlreadyPaid     = "✅ You're already unlocked! Send any message to get your current puzzle."
	msgReferenceUsed   = "⚠️ That payment reference has already been used."
	msgPaymentRejected = "⚠️ I couldn't verify that payment. Please check the transaction and send the reference again."
	msgLocked          = "🔒 Complete the entry payment to unlock the puzzles."
	msgAwaitSend       = "Send any message to receive today's puzzle!"
	msgChoose          = "Please choose: Reply with 'Naughty' or 'Nice'"
	msgRewardPrompt    = "🎅 Correct!\n\n" +
		"Choose your reward:\n" +
		"😇 Nice: Get your reward now (safe)\n" +
		"😈 Naughty: Swap for a random memecoin (risky, but could 10x!)\n\n" +
		"Reply: 'Nice' or 'Naughty'"

	msgNiceChosen    = "😇 Nice choice! You'll receive your reward shortly..."
	msgNiceSent      = "💸 Sent! Check your wallet."
	msgNiceFailed    = "⚠️ I couldn't send the prize right now. It has been logged for the team to review."
	msgNiceDone      = "🎁 Great! Your next puzzle will unlock tomorrow. Check back then!"
	msgNaughtyChosen = "😈 Feeling risky! Let's see what you get..."
	msgNaughtyDone   = "Nice! Your next puzzle will unlock tomorrow. See you then!"
	msgNoWallet      = "⚠️ I don't know where to send your reward. Link a wallet with /wallet <address> <signature> so future rewards can reach you."

	msgWalletUsage  = "Usage: /wallet <address> <signature>\n\nSign the message \"%s\" with the wallet you want to receive rewards on."
	msgWalletLinked = "👛 Wallet %s linked! Rewards will be sent there."
	msgWalletBad    = "⚠️ That signature doesn't match the wallet. Sign exactly \"%s\" and try again."

	msgOnramp = "💳 Get Started\n\n" +
		"Click here to purchase USDC with your debit card or bank account:\n" +
		"%s\n\n" +
		"Once you have funds, complete the payment and you'll automatically unlock the calendar!"
)

func welcomeMessage(days int, fee decimal.Decimal, asset string) string {
	return fmt.Sprintf("Welcome to the Advent Calendar! 🎄\n\n"+
		"Unlock %d days of puzzles and crypto rewards for just %s %s.\n\n"+
		"I'll send you a payment request now...", days, fee.String(), asset)
}

func paymentConfirmedMessage(network, reference string) string {
	return fmt.Sprintf("✅ Payment confirmed!\n"+
		"🔗 Network: %s\n"+
		"📄 Hash: %s\n\n"+
		"🎅 Ho Ho Ho! Welcome to the Advent Calendar!\n"+
		"Send any message to start your first puzzle!", network, reference)
}

func hintMessage(hint string) string {
	return "💡 Hint: " + hint
}

func correctMessage(day int, responseTimeMS int64) string {
	return fmt.Sprintf("✅ Correct! You solved Day %d in %.1f seconds!", day, float64(responseTimeMS)/1000)
}

func statsMessage(s *campaign.Stats) string {
	correct := "None yet"
	if s.CorrectAnswers > 0 {
		correct = fmt.Sprintf("%d", s.CorrectAnswers)
	}
	return fmt.Sprintf("📊 Your Stats 📊\n\n"+
		"⭐ Correct Answers: %s\n"+
		"⚡ Avg Response Time: %.1fs\n"+
		"📅 Current Day: %d", correct, s.AvgResponseTimeMS/1000, s.CurrentDay)
}

func leaderboardMessage(entries []campaign.LeaderboardEntry) string {
	var b strings.Builder
	b.WriteString("🏆 Advent Leaderboard 🏆\n\n")
	if len(entries) == 0 {
		b.WriteString("No scores yet! Be the first to answer correctly.")
		return b.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. %s - %d ⭐ (%.1fs)\n", e.Rank, ShortAddress(e.Address), e.CorrectAnswers, e.AvgResponseTimeMS/1000)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func tokenPickedMessage(symbol string) string {
	return fmt.Sprintf("🎯 You're getting $%s!", symbol)
}

func bonusMessage(symbol string) string {
	return fmt.Sprintf("🎁 Bonus! You already hold $%s - doubling your reward!", symbol)
}

func swapDoneMessage(symbol string) string {
	return fmt.Sprintf("✅ Done! Check your wallet for $%s", symbol)
}

func swapFailedMessage(symbol string) string {
	if symbol == "" {
		return "⚠️ The swap didn't work this time. It has been logged for the team to review."
	}
	return fmt.Sprintf("⚠️ The $%s swap didn't work this time. It has been logged for the team to review.", symbol)
}

// ShortAddress abbreviates long addresses as 0x1234...abcd.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
