package domain

// SecType classifies the instrument of a contract.
type SecType string

const (
	SecTypeStock  SecType = "STK"
	SecTypeFuture SecType = "FUT"
	SecTypeOption SecType = "OPT"
)

// Contract identifies the instrument an order or position refers to.
// Contracts are supplied by the strategy/contract collaborators and are
// immutable as far as this core is concerned, so they are carried by
// value and keyed by symbol.
type Contract struct {
	Symbol   string
	SecType  SecType
	Exchange string
	Currency string
}
