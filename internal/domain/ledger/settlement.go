package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Settlement is a recommended transfer from a debtor to a creditor.
type Settlement struct {
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// PlanSettlements reduces the given balances to a list of transfers that nets
// every member to zero. Greedy matching of the largest creditor against the
// largest debtor; deterministic, at most len(balances)-1 transfers. It does
// not guarantee the theoretical minimum transaction count for every
// distribution. Zero balances never produce a settlement.
//
// Sort order is descending by magnitude with a stable tie-break, so equal
// balances settle in the insertion order of the input slice.
func PlanSettlements(balances []MemberBalance) []Settlement {
	type side struct {
		userID string
		amount decimal.Decimal // always positive
	}

	var creditors, debtors []side
	for _, b := range balances {
		switch {
		case b.Balance.IsPositive():
			creditors = append(creditors, side{userID: b.UserID, amount: b.Balance})
		case b.Balance.IsNegative():
			debtors = append(debtors, side{userID: b.UserID, amount: b.Balance.Neg()})
		}
	}

	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].amount.GreaterThan(creditors[j].amount)
	})
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].amount.GreaterThan(debtors[j].amount)
	})

	var settlements []Settlement
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		creditor := &creditors[i]
		debtor := &debtors[j]

		amount := decimal.Min(creditor.amount, debtor.amount)
		if amount.IsPositive() {
			settlements = append(settlements, Settlement{
				FromUserID: debtor.userID,
				ToUserID:   creditor.userID,
				Amount:     amount,
			})
			creditor.amount = creditor.amount.Sub(amount)
			debtor.amount = debtor.amount.Sub(amount)
		}

		if creditor.amount.IsZero() {
			i++
		}
		if debtor.amount.IsZero() {
			j++
		}
	}

	return settlements
}
