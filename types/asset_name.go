package types

import (
	"strings"
)

const (
	// AssetNameDelimiter separates the parent and child segments of a
	// composed sub-asset name, e.g. "NUKEBOOM|tower".
	AssetNameDelimiter = "|"

	// SentinelParent is the placeholder parent segment recorded when a
	// sub-asset arrives before its declared root has been indexed.
	SentinelParent = "UNKNOWN"
)

// ComposeSubAssetName builds the canonical full name of a sub-asset.
// The parent segment is upper-cased, the child segment is preserved
// byte-for-byte.
func ComposeSubAssetName(parentName, childName string) string {
	return strings.ToUpper(parentName) + AssetNameDelimiter + childName
}

// ComposeSentinelName builds the placeholder full name used while a
// sub-asset's root is missing from the store.
func ComposeSentinelName(childName string) string {
	return SentinelParent + AssetNameDelimiter + childName
}

// SplitAssetName splits a composed name into parent and child segments.
// Plain root names return (name, "", false).
func SplitAssetName(fullName string) (parent, child string, ok bool) {
	parent, child, ok = strings.Cut(fullName, AssetNameDelimiter)
	if !ok {
		return fullName, "", false
	}
	return parent, child, true
}

// IsSentinelName reports whether a composed name still carries the
// unresolved-parent placeholder.
func IsSentinelName(fullName string) bool {
	return strings.HasPrefix(fullName, SentinelParent+AssetNameDelimiter)
}
