package db

type Block struct {
	Id         int64
	Height     uint64 `gorm:"NOT NULL;uniqueIndex:idx_block_height"`
	Hash       string `gorm:"NOT NULL;uniqueIndex:idx_block_hash;size:64"`
	ParentHash string `gorm:"size:64"`
	BlockTime  int64  `gorm:"NOT NULL"`
	TxCount    int
}

func (*Block) TableName() string {
	return "block"
}
