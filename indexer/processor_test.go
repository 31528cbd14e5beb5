package indexer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/cache"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/db"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/external/rtm"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/types"
)

func newIndexerDB(t *testing.T) db.ExplorerDao {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "explorer.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	db.AutoMigrateDB(gdb)
	return db.NewExplorerSvcDB(gdb)
}

func newTestProcessor(t *testing.T) (*Processor, db.ExplorerDao) {
	t.Helper()
	dao := newIndexerDB(t)
	localCache, err := cache.NewLocalCache(cache.DefaultCacheSize)
	require.NoError(t, err)
	return NewProcessor(dao, localCache), dao
}

func wireBlock(height uint64, hash string, blockTime int64, txs ...rtm.Tx) *rtm.Block {
	return &rtm.Block{
		Hash:              hash,
		Height:            height,
		PreviousBlockHash: "prev-" + hash,
		Time:              blockTime,
		Txs:               txs,
	}
}

func creationTx(txid string, payload rtm.NewAssetPayload) rtm.Tx {
	return rtm.Tx{
		TxID:     txid,
		Type:     rtm.TxTypeNewAsset,
		Vin:      []rtm.Vin{{TxID: "in-" + txid, Vout: 0, Address: "RCreator"}},
		Vout:     []rtm.Vout{{N: 0}},
		NewAsset: &payload,
	}
}

func mintTx(txid, assetName string, amount int64, target string) rtm.Tx {
	return rtm.Tx{
		TxID: txid,
		Type: rtm.TxTypeMintAsset,
		Vin:  []rtm.Vin{{TxID: "in-" + txid, Vout: 0, Address: "ROwner"}},
		Vout: []rtm.Vout{{N: 0, ScriptPubKey: rtm.ScriptPubKey{
			Type:      "mint_asset",
			Addresses: []string{target},
			Asset:     &rtm.VoutAsset{Name: assetName, Amount: amount},
		}}},
		MintAsset: &rtm.MintAssetPayload{AssetName: assetName, Amount: amount, TargetAddress: target},
	}
}

func transferTx(txid, from, assetName string, amount int64, to string) rtm.Tx {
	return rtm.Tx{
		TxID: txid,
		Type: rtm.TxTypeStandard,
		Vin:  []rtm.Vin{{TxID: "in-" + txid, Vout: 0, Address: from}},
		Vout: []rtm.Vout{
			{N: 0, ScriptPubKey: rtm.ScriptPubKey{
				Type:      "transfer_asset",
				Addresses: []string{to},
				Asset:     &rtm.VoutAsset{Name: assetName, Amount: amount},
			}},
			{Value: 0.1, N: 1, ScriptPubKey: rtm.ScriptPubKey{
				Type:      "pubkeyhash",
				Addresses: []string{from},
			}},
		},
	}
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestRootAndSubAssetCreation(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(10, "b10", 1000,
		creationTx("roottx", rtm.NewAssetPayload{
			Name: "NUKEBOOM", IsRoot: true, Decimals: 8, MaxMintCount: 10,
			OwnerAddress: "RCreator", ReferenceHash: "QmRef",
		}),
		creationTx("subtx", rtm.NewAssetPayload{
			Name: "tower", IsRoot: false, RootID: "roottx", Decimals: 0,
			MaxMintCount: 1, IsUnique: true,
		}),
	)))

	root, err := dao.GetAssetByID("roottx")
	require.NoError(t, err)
	assert.Equal(t, "NUKEBOOM", root.Name)
	assert.True(t, root.IsRoot)
	assert.False(t, root.IsSubAsset)
	assert.True(t, root.Updatable)
	assert.EqualValues(t, 8, root.Decimals)
	assert.EqualValues(t, 10, root.BlockHeight)

	sub, err := dao.GetAssetByID("subtx")
	require.NoError(t, err)
	assert.Equal(t, "NUKEBOOM|tower", sub.Name)
	assert.True(t, sub.IsSubAsset)
	assert.False(t, sub.IsRoot)
	assert.Equal(t, "roottx", sub.ParentAssetID)
	assert.Equal(t, "NUKEBOOM", sub.ParentAssetName)
	assert.Equal(t, "tower", sub.SubAssetName)
	assert.True(t, sub.IsUnique)

	c := p.Counters()
	assert.EqualValues(t, 2, c.AssetsCreated)
	assert.EqualValues(t, 0, c.SentinelParents)
}

func TestSubAssetNameCasePreserved(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(3, "b3", 300,
		creationTx("roottx", rtm.NewAssetPayload{Name: "GoldMine", IsRoot: true}),
		creationTx("subtx", rtm.NewAssetPayload{Name: "Shaft One", IsRoot: false, RootID: "roottx"}),
	)))

	sub, err := dao.GetAssetByID("subtx")
	require.NoError(t, err)
	// Parent segment is canonicalized upper; child is byte-preserved.
	assert.Equal(t, "GOLDMINE|Shaft One", sub.Name)
	assert.Equal(t, "GOLDMINE", sub.ParentAssetName)
	assert.Equal(t, "Shaft One", sub.SubAssetName)
}

func TestSentinelParentAndRelink(t *testing.T) {
	p, dao := newTestProcessor(t)

	// Child first: its declared root is nowhere to be found.
	require.NoError(t, p.ProcessBlock(wireBlock(5, "b5", 500,
		creationTx("subtx", rtm.NewAssetPayload{Name: "tower", IsRoot: false, RootID: "roottx"}),
	)))

	sub, err := dao.GetAssetByID("subtx")
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN|tower", sub.Name)
	assert.Equal(t, "roottx", sub.ParentAssetID)
	assert.Equal(t, "", sub.ParentAssetName)
	assert.EqualValues(t, 1, p.Counters().SentinelParents)

	// The root arrives later; the live path does not rewrite the child.
	require.NoError(t, p.ProcessBlock(wireBlock(6, "b6", 600,
		creationTx("roottx", rtm.NewAssetPayload{Name: "NUKEBOOM", IsRoot: true, Decimals: 8}),
	)))
	sub, err = dao.GetAssetByID("subtx")
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN|tower", sub.Name)

	resolved, remaining, err := p.RelinkSubAssets()
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 0, remaining)

	sub, err = dao.GetAssetByID("subtx")
	require.NoError(t, err)
	assert.Equal(t, "NUKEBOOM|tower", sub.Name)
	assert.Equal(t, "NUKEBOOM", sub.ParentAssetName)

	// Nothing left to repair.
	resolved, remaining, err = p.RelinkSubAssets()
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)
	assert.Equal(t, 0, remaining)
}

func TestRelinkKeepsUnresolvedSentinels(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(5, "b5", 500,
		creationTx("subtx", rtm.NewAssetPayload{Name: "ghost", IsRoot: false, RootID: "nevertx"}),
	)))

	resolved, remaining, err := p.RelinkSubAssets()
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)
	assert.Equal(t, 1, remaining)

	sub, err := dao.GetAssetByID("subtx")
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN|ghost", sub.Name)
}

func TestMintZeroDecimals(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(5, "b5", 500,
		creationTx("c1", rtm.NewAssetPayload{Name: "BADGE", IsRoot: true, Decimals: 0, MaxMintCount: 100}),
	)))
	require.NoError(t, p.ProcessBlock(wireBlock(6, "b6", 600,
		mintTx("m1", "BADGE", 100, "RHolder"),
	)))

	asset, err := dao.GetAssetByID("c1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, asset.MintCount)
	assert.InDelta(t, 100, asset.CirculatingSupply, 1e-9)
	assert.InDelta(t, 100, asset.TotalSupply, 1e-9)

	transfers, err := dao.GetTransfersByTx("m1")
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, types.TransferKindMint, transfers[0].Kind)
	assert.InDelta(t, 100, transfers[0].Amount, 1e-9)
	assert.Equal(t, "RHolder", transfers[0].ToAddr)
	assert.Equal(t, "", transfers[0].FromAddr)
	assert.EqualValues(t, 1, p.Counters().Mints)
}

func TestMintConvertsWithDecimals(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(5, "b5", 500,
		creationTx("c1", rtm.NewAssetPayload{Name: "NUKEBOOM", IsRoot: true, Decimals: 8}),
	)))
	require.NoError(t, p.ProcessBlock(wireBlock(6, "b6", 600,
		mintTx("m1", "NUKEBOOM", 100000000, "RHolder"),
	)))
	require.NoError(t, p.ProcessBlock(wireBlock(7, "b7", 700,
		mintTx("m2", "NUKEBOOM", 50000000, "RHolder"),
	)))

	transfers, err := dao.GetTransfersByTx("m1")
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.InDelta(t, 1.0, transfers[0].Amount, 1e-9)

	asset, err := dao.GetAssetByID("c1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, asset.MintCount)
	assert.InDelta(t, 1.5, asset.CirculatingSupply, 1e-9)
}

func TestMintUnknownAssetSkipped(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(6, "b6", 600,
		mintTx("m1", "NOSUCH", 100, "RHolder"),
	)))

	transfers, err := dao.GetTransfersByTx("m1")
	require.NoError(t, err)
	assert.Len(t, transfers, 0)

	// The plain transaction row still lands.
	tx, err := dao.GetTransaction("m1")
	require.NoError(t, err)
	assert.EqualValues(t, rtm.TxTypeMintAsset, tx.TypeCode)

	c := p.Counters()
	assert.EqualValues(t, 1, c.SkippedMissingAsset)
	assert.EqualValues(t, 0, c.Mints)
}

func TestStandardTransfer(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(5, "b5", 500,
		creationTx("c1", rtm.NewAssetPayload{Name: "GOLD", IsRoot: true, Decimals: 8}),
	)))
	require.NoError(t, p.ProcessBlock(wireBlock(6, "b6", 600,
		transferTx("t1", "RHolder", "GOLD", 50000000, "RNext"),
	)))

	transfers, err := dao.GetTransfersByTx("t1")
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	tr := transfers[0]
	assert.Equal(t, types.TransferKindTransfer, tr.Kind)
	assert.Equal(t, "c1", tr.AssetID)
	assert.Equal(t, "GOLD", tr.AssetName)
	assert.Equal(t, "RHolder", tr.FromAddr)
	assert.Equal(t, "RNext", tr.ToAddr)
	assert.EqualValues(t, 0, tr.OutputIndex)
	assert.InDelta(t, 0.5, tr.Amount, 1e-9)
	assert.EqualValues(t, 1, p.Counters().Transfers)
}

func TestTransferUnknownAssetOutputSkipped(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(6, "b6", 600,
		transferTx("t1", "RHolder", "NOSUCH", 100, "RNext"),
	)))

	transfers, err := dao.GetTransfersByTx("t1")
	require.NoError(t, err)
	assert.Len(t, transfers, 0)
	assert.EqualValues(t, 1, p.Counters().SkippedMissingAsset)
}

func TestUpdateAsset(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(5, "b5", 500,
		creationTx("c1", rtm.NewAssetPayload{
			Name: "BADGE", IsRoot: true, Decimals: 0, MaxMintCount: 100, ReferenceHash: "QmOld",
		}),
	)))
	require.NoError(t, p.ProcessBlock(wireBlock(6, "b6", 600, rtm.Tx{
		TxID: "u1",
		Type: rtm.TxTypeUpdateAsset,
		Vin:  []rtm.Vin{{TxID: "in-u1", Vout: 0, Address: "RCreator"}},
		Vout: []rtm.Vout{{N: 0}},
		UpdateAsset: &rtm.UpdateAssetPayload{
			AssetName:     "BADGE",
			ReferenceHash: strPtr("QmNew"),
			MaxMintCount:  int64Ptr(5),
		},
	})))

	asset, err := dao.GetAssetByID("c1")
	require.NoError(t, err)
	assert.Equal(t, "QmNew", asset.ReferenceHash)
	assert.EqualValues(t, 5, asset.MaxMintCount)
	assert.True(t, asset.Updatable) // untouched field stays
	assert.EqualValues(t, 1, p.Counters().AssetsUpdated)
}

func TestUpdateUnknownAssetSkipped(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(6, "b6", 600, rtm.Tx{
		TxID: "u1",
		Type: rtm.TxTypeUpdateAsset,
		Vin:  []rtm.Vin{{TxID: "in-u1", Vout: 0, Address: "RCreator"}},
		Vout: []rtm.Vout{{N: 0}},
		UpdateAsset: &rtm.UpdateAssetPayload{
			AssetName: "NOSUCH",
			Updatable: boolPtr(false),
		},
	})))

	tx, err := dao.GetTransaction("u1")
	require.NoError(t, err)
	assert.NotZero(t, tx.Id)
	assert.EqualValues(t, 1, p.Counters().SkippedUpdates)
	assert.EqualValues(t, 0, p.Counters().AssetsUpdated)
}

func TestUnknownTypeIndexedAsPlainRow(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(6, "b6", 600, rtm.Tx{
		TxID: "x1",
		Type: 42,
		Vin:  []rtm.Vin{{TxID: "in-x1", Vout: 0, Address: "RSomeone"}},
		Vout: []rtm.Vout{{Value: 1, N: 0}},
	})))

	tx, err := dao.GetTransaction("x1")
	require.NoError(t, err)
	assert.NotZero(t, tx.Id)
	assert.EqualValues(t, 42, tx.TypeCode)

	transfers, err := dao.GetTransfersByTx("x1")
	require.NoError(t, err)
	assert.Len(t, transfers, 0)
	assert.EqualValues(t, 1, p.Counters().SkippedUnknownType)
}

func TestReprocessingIdempotent(t *testing.T) {
	p, dao := newTestProcessor(t)

	block5 := wireBlock(5, "b5", 500,
		creationTx("roottx", rtm.NewAssetPayload{Name: "NUKEBOOM", IsRoot: true, Decimals: 8}),
		creationTx("subtx", rtm.NewAssetPayload{Name: "tower", IsRoot: false, RootID: "roottx"}),
	)
	block6 := wireBlock(6, "b6", 600,
		mintTx("m1", "NUKEBOOM", 100000000, "RHolder"),
		transferTx("t1", "RHolder", "NUKEBOOM", 50000000, "RNext"),
	)

	require.NoError(t, p.ProcessBlock(block5))
	require.NoError(t, p.ProcessBlock(block6))

	// Crash-and-retry means the same blocks run again.
	require.NoError(t, p.ProcessBlock(block5))
	require.NoError(t, p.ProcessBlock(block6))

	ids, err := dao.GetAssetIDs()
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	asset, err := dao.GetAssetByID("roottx")
	require.NoError(t, err)
	assert.EqualValues(t, 1, asset.MintCount)
	assert.InDelta(t, 1.0, asset.CirculatingSupply, 1e-9)

	mints, err := dao.GetTransfersByTx("m1")
	require.NoError(t, err)
	assert.Len(t, mints, 1)

	transfers, err := dao.GetTransfersByTx("t1")
	require.NoError(t, err)
	assert.Len(t, transfers, 1)
}

func TestRecomputeSupplies(t *testing.T) {
	p, dao := newTestProcessor(t)

	require.NoError(t, p.ProcessBlock(wireBlock(5, "b5", 500,
		creationTx("c1", rtm.NewAssetPayload{Name: "BADGE", IsRoot: true, Decimals: 0}),
	)))
	require.NoError(t, p.ProcessBlock(wireBlock(6, "b6", 600,
		mintTx("m1", "BADGE", 100, "RHolder"),
	)))

	// Corrupt the derived columns, then repair.
	require.NoError(t, dao.UpdateAssetFields("c1", map[string]interface{}{
		"circulating_supply": 999.0,
		"mint_count":         7,
	}))

	n, err := p.RecomputeSupplies()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	asset, err := dao.GetAssetByID("c1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, asset.MintCount)
	assert.InDelta(t, 100, asset.CirculatingSupply, 1e-9)
}

func TestProcessBlockRejectsMalformedLinkage(t *testing.T) {
	p, dao := newTestProcessor(t)

	// Empty hash and zero time: nothing from this block may land.
	require.NoError(t, p.ProcessBlock(wireBlock(7, "", 0,
		creationTx("c1", rtm.NewAssetPayload{Name: "BADGE", IsRoot: true}),
	)))

	tx, err := dao.GetTransaction("c1")
	require.NoError(t, err)
	assert.Zero(t, tx.Id)

	asset, err := dao.GetAssetByID("c1")
	require.NoError(t, err)
	assert.Zero(t, asset.Id)

	assert.NotZero(t, p.Counters().RejectedRecords)
}
