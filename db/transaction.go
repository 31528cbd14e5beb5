package db

type Transaction struct {
	Id          int64
	TxID        string `gorm:"NOT NULL;uniqueIndex:idx_transaction_tx_id;size:64"`
	BlockHeight uint64 `gorm:"NOT NULL;index:idx_transaction_height"`
	BlockHash   string `gorm:"NOT NULL;size:64"`
	BlockTime   int64  `gorm:"NOT NULL"`
	TypeCode    uint16 // raw on-chain transaction type code
	ValueOutSat int64  // sum of plain output values in satoshis
}

func (*Transaction) TableName() string {
	return "transaction"
}
