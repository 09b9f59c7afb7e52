package installments

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/card-truth/internal/domain/ledger"
	"github.com/FACorreiaa/card-truth/internal/domain/statement"
)

const (
	inferredBaseConfidence = 0.6
	inferredMaxConfidence  = 0.8
	minOccurrences         = 2
	minSpacingDays         = 25
	maxSpacingDays         = 35
	maxVarianceRatio       = 0.10
	descriptorEditBudget   = 2
)

var descriptorNoiseRe = regexp.MustCompile(`[\d#*/]+|\b(?:pmt|payment|cuota)\s*\d*\b`)

// InferFromLedger looks for repeating charges that behave like
// installment plans: same merchant, near-identical amount, roughly monthly
// spacing. Confidence starts low and grows with each extra observation,
// but inferred plans never reach explicit-plan confidence.
func InferFromLedger(txs []ledger.Transaction, issuerName, cardLast4 string) []statement.InstallmentPlan {
	clusters := clusterByDescriptor(txs)

	var plans []statement.InstallmentPlan
	for _, c := range clusters {
		plan, ok := planFromCluster(c, issuerName, cardLast4)
		if ok {
			plans = append(plans, plan)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Descriptor < plans[j].Descriptor })
	return plans
}

type cluster struct {
	descriptor string
	txs        []ledger.Transaction
}

// clusterByDescriptor groups charges whose cleaned descriptions are within
// a small edit distance of each other, so "NETFLIX 3/12" and "NETFLIX 4/12"
// land in one cluster.
func clusterByDescriptor(txs []ledger.Transaction) []cluster {
	var clusters []cluster
	for _, tx := range txs {
		if tx.Amount.Sign() <= 0 {
			continue
		}
		if tx.Type != ledger.TypePurchase && tx.Type != ledger.TypeInstallment {
			continue
		}
		key := cleanDescriptor(tx.Description)
		if key == "" {
			continue
		}

		placed := false
		for i := range clusters {
			if fuzzy.LevenshteinDistance(clusters[i].descriptor, key) <= descriptorEditBudget {
				clusters[i].txs = append(clusters[i].txs, tx)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, cluster{descriptor: key, txs: []ledger.Transaction{tx}})
		}
	}
	return clusters
}

func cleanDescriptor(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = descriptorNoiseRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func planFromCluster(c cluster, issuerName, cardLast4 string) (statement.InstallmentPlan, bool) {
	if len(c.txs) < minOccurrences {
		return statement.InstallmentPlan{}, false
	}

	sort.Slice(c.txs, func(i, j int) bool { return c.txs[i].Date.Before(c.txs[j].Date) })

	mean := decimal.Zero
	for _, tx := range c.txs {
		mean = mean.Add(tx.Amount)
	}
	mean = mean.Div(decimal.NewFromInt(int64(len(c.txs))))
	if mean.IsZero() {
		return statement.InstallmentPlan{}, false
	}

	tolerance := mean.Mul(decimal.NewFromFloat(maxVarianceRatio))
	for _, tx := range c.txs {
		if tx.Amount.Sub(mean).Abs().GreaterThanOrEqual(tolerance) {
			return statement.InstallmentPlan{}, false
		}
	}

	for i := 1; i < len(c.txs); i++ {
		gap := int(c.txs[i].Date.Sub(c.txs[i-1].Date).Hours() / 24)
		if gap < minSpacingDays || gap > maxSpacingDays {
			return statement.InstallmentPlan{}, false
		}
	}

	conf := inferredBaseConfidence + 0.05*float64(len(c.txs)-minOccurrences)
	if conf > inferredMaxConfidence {
		conf = inferredMaxConfidence
	}

	monthly := mean.Round(2)
	return statement.InstallmentPlan{
		ID:            statement.PlanID(issuerName, cardLast4, c.descriptor, monthly),
		Descriptor:    c.descriptor,
		MonthsElapsed: len(c.txs),
		MonthlyCharge: monthly,
		Source:        statement.PlanSourceInferred,
		Confidence:    conf,
	}, true
}
