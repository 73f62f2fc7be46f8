package eventstore

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rohmanhakim/listing-enricher/internal/events"
)

// Rows mirror schema.sql. Hashes and addresses are stored as 0x-prefixed
// hex, amounts as NUMERIC read back through ::text.

type metaRow struct {
	ListingID        string `db:"listing_id"`
	BlockNumber      int64  `db:"block_number"`
	BlockTimestamp   int64  `db:"block_timestamp"`
	TransactionHash  string `db:"transaction_hash"`
	TransactionIndex *int64 `db:"transaction_index"`
}

type createdRow struct {
	metaRow
	Builder      string `db:"builder"`
	PaymentToken string `db:"payment_token"`
	NameHash     string `db:"name_hash"`
	LocationHash string `db:"location_hash"`
	NightlyRate  string `db:"nightly_rate"`
	MaxGuests    int32  `db:"max_guests"`
	RequireProof bool   `db:"require_proof"`
}

type metadataURISetRow struct {
	metaRow
	MetadataURI string `db:"metadata_uri"`
}

type privateDataSetRow struct {
	metaRow
	PrivDataHash   string `db:"priv_data_hash"`
	EncPrivDataCid string `db:"enc_priv_data_cid"`
}

func (r metaRow) toMeta() (events.Meta, error) {
	if r.BlockNumber < 0 {
		return events.Meta{}, fmt.Errorf("negative block number %d", r.BlockNumber)
	}
	meta := events.Meta{
		ListingID:       r.ListingID,
		BlockNumber:     uint64(r.BlockNumber),
		BlockTimestamp:  r.BlockTimestamp,
		TransactionHash: common.HexToHash(r.TransactionHash),
	}
	if r.TransactionIndex != nil {
		if *r.TransactionIndex < 0 {
			return events.Meta{}, fmt.Errorf("negative transaction index %d", *r.TransactionIndex)
		}
		txIndex := uint64(*r.TransactionIndex)
		meta.TransactionIndex = &txIndex
	}
	return meta, nil
}

func (r createdRow) toEvent() (events.Created, error) {
	meta, err := r.metaRow.toMeta()
	if err != nil {
		return events.Created{}, err
	}
	nightlyRate, err := events.ParseAmount(r.NightlyRate)
	if err != nil {
		return events.Created{}, fmt.Errorf("nightly rate: %w", err)
	}
	if r.MaxGuests < 0 {
		return events.Created{}, fmt.Errorf("negative max guests %d", r.MaxGuests)
	}
	return events.Created{
		Meta:         meta,
		Builder:      common.HexToAddress(r.Builder),
		PaymentToken: common.HexToAddress(r.PaymentToken),
		NameHash:     common.HexToHash(r.NameHash),
		LocationHash: common.HexToHash(r.LocationHash),
		NightlyRate:  nightlyRate,
		MaxGuests:    uint32(r.MaxGuests),
		RequireProof: r.RequireProof,
	}, nil
}

func (r metadataURISetRow) toEvent() (events.MetadataURISet, error) {
	meta, err := r.metaRow.toMeta()
	if err != nil {
		return events.MetadataURISet{}, err
	}
	return events.MetadataURISet{Meta: meta, MetadataURI: r.MetadataURI}, nil
}

func (r privateDataSetRow) toEvent() (events.PrivateDataSet, error) {
	meta, err := r.metaRow.toMeta()
	if err != nil {
		return events.PrivateDataSet{}, err
	}
	return events.PrivateDataSet{
		Meta:           meta,
		PrivDataHash:   common.HexToHash(r.PrivDataHash),
		EncPrivDataCid: r.EncPrivDataCid,
	}, nil
}

func newMetaRow(meta events.Meta) (metaRow, error) {
	if meta.BlockNumber > math.MaxInt64 {
		return metaRow{}, fmt.Errorf("block number %d overflows BIGINT", meta.BlockNumber)
	}
	row := metaRow{
		ListingID:       meta.ListingID,
		BlockNumber:     int64(meta.BlockNumber),
		BlockTimestamp:  meta.BlockTimestamp,
		TransactionHash: meta.TransactionHash.Hex(),
	}
	if meta.TransactionIndex != nil {
		if *meta.TransactionIndex > math.MaxInt64 {
			return metaRow{}, fmt.Errorf("transaction index %d overflows BIGINT", *meta.TransactionIndex)
		}
		txIndex := int64(*meta.TransactionIndex)
		row.TransactionIndex = &txIndex
	}
	return row, nil
}

func newCreatedRow(event events.Created) (createdRow, error) {
	meta, err := newMetaRow(event.Meta)
	if err != nil {
		return createdRow{}, err
	}
	nightlyRate := "0"
	if event.NightlyRate != nil {
		nightlyRate = event.NightlyRate.Dec()
	}
	if event.MaxGuests > math.MaxInt32 {
		return createdRow{}, fmt.Errorf("max guests %d overflows INTEGER", event.MaxGuests)
	}
	return createdRow{
		metaRow:      meta,
		Builder:      event.Builder.Hex(),
		PaymentToken: event.PaymentToken.Hex(),
		NameHash:     event.NameHash.Hex(),
		LocationHash: event.LocationHash.Hex(),
		NightlyRate:  nightlyRate,
		MaxGuests:    int32(event.MaxGuests),
		RequireProof: event.RequireProof,
	}, nil
}
