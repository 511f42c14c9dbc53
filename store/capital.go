package store

// Trading modes. Each mode has its own capital account.
const (
	ModeVirtual = "virtual"
	ModeReal    = "real"
)

// CapitalAccount tracks equity and margin for one trading mode.
// Available + Used must equal Capital after every completed mutation.
type CapitalAccount struct {
	Capital      float64 `json:"capital"`
	Available    float64 `json:"available"`
	Used         float64 `json:"used"`
	StartBalance float64 `json:"start_balance"`
	Currency     string  `json:"currency"`
}

// Reconciled reports whether the account satisfies the
// available+used == capital invariant within eps.
func (a CapitalAccount) Reconciled(eps float64) bool {
	d := a.Available + a.Used - a.Capital
	if d < 0 {
		d = -d
	}
	return d <= eps
}

// CapitalBook maps trading mode to its capital account.
type CapitalBook map[string]CapitalAccount

// DefaultCapitalBook returns the book materialized when no capital document
// exists yet: an empty real account and a seeded virtual account.
func DefaultCapitalBook(virtualBalance float64, currency string) CapitalBook {
	if virtualBalance <= 0 {
		virtualBalance = 100
	}
	if currency == "" {
		currency = "USDT"
	}
	return CapitalBook{
		ModeReal: {
			Currency: currency,
		},
		ModeVirtual: {
			Capital:      virtualBalance,
			Available:    virtualBalance,
			StartBalance: virtualBalance,
			Currency:     currency,
		},
	}
}
