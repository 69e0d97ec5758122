package banking

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MatchConfig holds the tunable reconciliation thresholds. The windows are
// deliberately configuration rather than constants; product has not pinned
// the exact day counts down.
type MatchConfig struct {
	// SEPADateWindowDays bounds how far a collection's charge date may sit
	// from the payment's due date in the first pass.
	SEPADateWindowDays int
	// PayoutDateWindowDays bounds how far a payout's settlement may land from
	// its expected arrival date in the second pass.
	PayoutDateWindowDays int
}

// DefaultMatchConfig returns the default thresholds
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		SEPADateWindowDays:   5,
		PayoutDateWindowDays: 4,
	}
}

// MatchPass identifies which pass claimed a pair
type MatchPass string

const (
	PassSEPAToPayment   MatchPass = "SEPA_TO_PAYMENT"
	PassPayoutToBankTx  MatchPass = "PAYOUT_TO_BANK_TX"
	PassBankTxToPayment MatchPass = "BANK_TX_TO_PAYMENT"
)

// PassResult counts the outcomes of one matching pass
type PassResult struct {
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Ambiguous int `json:"ambiguous"`
}

// CollectionMatch pairs a SEPA collection with the internal payment it charges
type CollectionMatch struct {
	CollectionID uuid.UUID
	PaymentID    uuid.UUID
}

// PayoutMatch pairs a payout batch with its settlement bank transaction
type PayoutMatch struct {
	PayoutID      uuid.UUID
	TransactionID uuid.UUID
}

// TransactionMatch pairs a bank transaction with an internal payment (fallback pass)
type TransactionMatch struct {
	TransactionID uuid.UUID
	PaymentID     uuid.UUID
}

// MatchInput is the pre-loaded candidate set for one reconciliation run.
// The matcher performs no I/O; the caller loads everything up front.
type MatchInput struct {
	Collections  []SepaCollection
	Payments     []Payment
	Payouts      []Payout
	Transactions []BankTransaction
}

// MatchResult reports per-pass counts plus the concrete pairs to apply
type MatchResult struct {
	SEPAToPayment   PassResult `json:"sepaToPayment"`
	PayoutToBankTx  PassResult `json:"payoutToBankTx"`
	BankTxToPayment PassResult `json:"bankTxToPayment"`

	CollectionMatches  []CollectionMatch  `json:"-"`
	PayoutMatches      []PayoutMatch      `json:"-"`
	TransactionMatches []TransactionMatch `json:"-"`
}

// TotalMatched returns the number of pairs claimed across all passes
func (r MatchResult) TotalMatched() int {
	return r.SEPAToPayment.Matched + r.PayoutToBankTx.Matched + r.BankTxToPayment.Matched
}

// Matcher runs the three reconciliation passes over a pre-loaded candidate
// set. It is pure and re-runnable: already-matched entities never enter a
// candidate pool, and an entity claimed by an earlier pass is excluded from
// later passes within the same run. When several candidates are equally
// good the group is flagged ambiguous and left for manual review, never
// guessed.
type Matcher struct {
	cfg MatchConfig
}

// NewMatcher creates a matcher with the given thresholds
func NewMatcher(cfg MatchConfig) *Matcher {
	if cfg.SEPADateWindowDays <= 0 {
		cfg.SEPADateWindowDays = DefaultMatchConfig().SEPADateWindowDays
	}
	if cfg.PayoutDateWindowDays <= 0 {
		cfg.PayoutDateWindowDays = DefaultMatchConfig().PayoutDateWindowDays
	}
	return &Matcher{cfg: cfg}
}

// Run executes the three passes in their fixed order:
// SEPA→Payment, Payout→BankTransaction, BankTransaction→Payment.
func (m *Matcher) Run(in MatchInput) MatchResult {
	var result MatchResult

	claimedPayments := make(map[uuid.UUID]bool)
	claimedTransactions := make(map[uuid.UUID]bool)

	m.runSEPAPass(in, &result, claimedPayments)
	m.runPayoutPass(in, &result, claimedTransactions)
	m.runFallbackPass(in, &result, claimedPayments, claimedTransactions)

	return result
}

// runSEPAPass matches SEPA collections to internal payments by exact amount
// and due-date proximity, preferring candidates whose tenant reference agrees.
func (m *Matcher) runSEPAPass(in MatchInput, result *MatchResult, claimedPayments map[uuid.UUID]bool) {
	window := daysToWindow(m.cfg.SEPADateWindowDays)

	for i := range in.Collections {
		col := &in.Collections[i]
		if col.State != ReconcileStatePending || !col.Status.CanReconcile() {
			continue
		}

		var candidates []*Payment
		for j := range in.Payments {
			p := &in.Payments[j]
			if !p.CanReconcile() || claimedPayments[p.ID] {
				continue
			}
			if p.CompanyID != col.CompanyID || p.Currency != col.Currency {
				continue
			}
			if p.AmountCents != col.AmountCents {
				continue
			}
			if absDuration(col.ChargeDate.Sub(p.DueDate)) > window {
				continue
			}
			candidates = append(candidates, p)
		}

		// A tenant reference, when both sides carry one, narrows the pool
		// before any date tie-break.
		if col.Reference != "" {
			var withRef []*Payment
			for _, p := range candidates {
				if p.Reference != "" && strings.EqualFold(p.Reference, col.Reference) {
					withRef = append(withRef, p)
				}
			}
			if len(withRef) > 0 {
				candidates = withRef
			}
		}

		best, ambiguous := closestByDate(candidates, col.ChargeDate, func(p *Payment) time.Time { return p.DueDate })
		switch {
		case best == nil:
			result.SEPAToPayment.Unmatched++
		case ambiguous:
			result.SEPAToPayment.Ambiguous++
		default:
			claimedPayments[best.ID] = true
			result.SEPAToPayment.Matched++
			result.CollectionMatches = append(result.CollectionMatches, CollectionMatch{
				CollectionID: col.ID,
				PaymentID:    best.ID,
			})
		}
	}
}

// runPayoutPass matches each payout batch total to a single incoming bank
// transaction of the same amount near the expected settlement date.
func (m *Matcher) runPayoutPass(in MatchInput, result *MatchResult, claimedTransactions map[uuid.UUID]bool) {
	window := daysToWindow(m.cfg.PayoutDateWindowDays)

	for i := range in.Payouts {
		po := &in.Payouts[i]
		if po.State != ReconcileStatePending {
			continue
		}

		var candidates []*BankTransaction
		for j := range in.Transactions {
			t := &in.Transactions[j]
			if t.State != ReconcileStatePending || claimedTransactions[t.ID] {
				continue
			}
			if t.CompanyID != po.CompanyID || t.Currency != po.Currency {
				continue
			}
			if !t.IsIncoming() || t.AmountCents != po.AmountCents {
				continue
			}
			if absDuration(t.BookedAt.Sub(po.ArrivalDate)) > window {
				continue
			}
			candidates = append(candidates, t)
		}

		best, ambiguous := closestByDate(candidates, po.ArrivalDate, func(t *BankTransaction) time.Time { return t.BookedAt })
		switch {
		case best == nil:
			result.PayoutToBankTx.Unmatched++
		case ambiguous:
			result.PayoutToBankTx.Ambiguous++
		default:
			claimedTransactions[best.ID] = true
			result.PayoutToBankTx.Matched++
			result.PayoutMatches = append(result.PayoutMatches, PayoutMatch{
				PayoutID:      po.ID,
				TransactionID: best.ID,
			})
		}
	}
}

// runFallbackPass matches leftover bank transactions to payments by amount
// equality, using tenant-name or reference substrings in the transaction
// description as the discriminator and due-date proximity as the tie-break.
func (m *Matcher) runFallbackPass(in MatchInput, result *MatchResult, claimedPayments, claimedTransactions map[uuid.UUID]bool) {
	for i := range in.Transactions {
		t := &in.Transactions[i]
		if t.State != ReconcileStatePending || claimedTransactions[t.ID] || !t.IsIncoming() {
			continue
		}

		bestScore := -1
		var candidates []*Payment
		for j := range in.Payments {
			p := &in.Payments[j]
			if !p.CanReconcile() || claimedPayments[p.ID] {
				continue
			}
			if p.CompanyID != t.CompanyID || p.Currency != t.Currency {
				continue
			}
			if p.AmountCents != t.AmountCents {
				continue
			}
			score := descriptionScore(t, p)
			if score > bestScore {
				bestScore = score
				candidates = candidates[:0]
			}
			if score == bestScore {
				candidates = append(candidates, p)
			}
		}

		best, ambiguous := closestByDate(candidates, t.BookedAt, func(p *Payment) time.Time { return p.DueDate })
		switch {
		case best == nil:
			result.BankTxToPayment.Unmatched++
		case ambiguous:
			result.BankTxToPayment.Ambiguous++
		default:
			claimedPayments[best.ID] = true
			claimedTransactions[t.ID] = true
			result.BankTxToPayment.Matched++
			result.TransactionMatches = append(result.TransactionMatches, TransactionMatch{
				TransactionID: t.ID,
				PaymentID:     best.ID,
			})
		}
	}
}

// descriptionScore ranks how strongly a transaction description points at a
// payment: a reference-number hit beats a tenant-name hit beats nothing.
func descriptionScore(t *BankTransaction, p *Payment) int {
	haystack := t.Description + " " + t.CounterpartyRef
	if p.Reference != "" && containsFold(haystack, p.Reference) {
		return 2
	}
	if p.TenantName != "" && containsFold(haystack, p.TenantName) {
		return 1
	}
	return 0
}

// closestByDate picks the candidate with the smallest date distance to ref.
// Returns (nil, false) for an empty pool and (nil, true) when two or more
// candidates tie at the minimal distance.
func closestByDate[T any](candidates []*T, ref time.Time, dateOf func(*T) time.Time) (*T, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	best := candidates[0]
	bestDist := absDuration(ref.Sub(dateOf(best)))
	tied := false
	for _, c := range candidates[1:] {
		dist := absDuration(ref.Sub(dateOf(c)))
		switch {
		case dist < bestDist:
			best, bestDist, tied = c, dist, false
		case dist == bestDist:
			tied = true
		}
	}
	if tied {
		return nil, true
	}
	return best, false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func daysToWindow(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
