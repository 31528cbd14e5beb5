package indexer

import (
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/external/rtm"
)

// TxKind is the pipeline's view of a transaction. Unknown is a real
// variant, not a default: a type code this build has never seen is
// surfaced and skipped rather than silently treated as standard.
type TxKind int

const (
	KindStandard TxKind = iota
	KindAssetCreate
	KindAssetMint
	KindAssetUpdate
	KindUnknown
)

func (k TxKind) String() string {
	switch k {
	case KindStandard:
		return "standard"
	case KindAssetCreate:
		return "asset_create"
	case KindAssetMint:
		return "asset_mint"
	case KindAssetUpdate:
		return "asset_update"
	default:
		return "unknown"
	}
}

// Classify maps a transaction's type code to its pipeline kind. The
// masternode and quorum special types carry no asset operations and are
// indexed like standard value transactions.
func Classify(tx *rtm.Tx) TxKind {
	switch tx.Type {
	case rtm.TxTypeNewAsset:
		return KindAssetCreate
	case rtm.TxTypeMintAsset:
		return KindAssetMint
	case rtm.TxTypeUpdateAsset:
		return KindAssetUpdate
	case rtm.TxTypeStandard, rtm.TxTypeProviderRegister, rtm.TxTypeProviderUpdateService,
		rtm.TxTypeProviderUpdateRegistrar, rtm.TxTypeProviderUpdateRevoke,
		rtm.TxTypeCoinbase, rtm.TxTypeQuorumCommitment, rtm.TxTypeFutureSend:
		return KindStandard
	default:
		return KindUnknown
	}
}
