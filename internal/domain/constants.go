package domain

const (
	TxTypeConversion   = "conversion"
	TxTypeServiceSpend = "service_spend"
	TxTypeAccountTopUp = "account_topup"

	// DefaultBaseCurrency is the settlement/bridge currency every non-base
	// operation converts through.
	DefaultBaseCurrency = "RUB"
)
