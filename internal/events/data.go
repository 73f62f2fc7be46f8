package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Meta is shared by every listing event.
//
// Ordering within one listing is by BlockNumber, then TransactionIndex when
// both events carry one, then position in the collection they arrived in.
type Meta struct {
	ListingID       string
	BlockNumber     uint64
	BlockTimestamp  int64
	TransactionHash common.Hash
	// TransactionIndex is nil when the event source does not report it.
	TransactionIndex *uint64
}

type Created struct {
	Meta
	Builder      common.Address
	PaymentToken common.Address
	NameHash     common.Hash
	LocationHash common.Hash
	NightlyRate  *uint256.Int
	MaxGuests    uint32
	RequireProof bool
}

type MetadataURISet struct {
	Meta
	MetadataURI string
}

// PrivateDataSet carries a reference to an encrypted payload. The payload
// itself is never fetched or decrypted here.
type PrivateDataSet struct {
	Meta
	PrivDataHash   common.Hash
	EncPrivDataCid string
}

// Collections holds the three append-only event streams, each in arrival order.
type Collections struct {
	Created        []Created
	MetadataURISet []MetadataURISet
	PrivateDataSet []PrivateDataSet
}

func (c Collections) Len() int {
	return len(c.Created) + len(c.MetadataURISet) + len(c.PrivateDataSet)
}

// EventMeta exposes the shared fields of any event variant.
type EventMeta interface {
	EventMeta() Meta
}

func (m Meta) EventMeta() Meta {
	return m
}
