package model

// AccountBalanceDocument is the value credited to an external account by
// ledger transfers.
type AccountBalanceDocument struct {
	Address string `bson:"_id"`
	Balance string `bson:"balance"`
}
