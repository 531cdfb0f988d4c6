package domain

import "github.com/shopspring/decimal"

// Money is the ledger's exact numeric type for cash, prices and quantities.
type Money = decimal.Decimal
