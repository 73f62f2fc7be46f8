package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

/*
FileSource reads an indexer export: one JSON document holding the three
collections in arrival order.

	{
	  "created":        [{"listingId": "42", "blockNumber": "100", ...}],
	  "metadataURISet": [{"listingId": "42", "metadataURI": "bafy...", ...}],
	  "privateDataSet": [{"listingId": "42", "encPrivDataCid": "bafy...", ...}]
	}

Numeric fields accept JSON numbers or decimal strings, the way subgraph
APIs serialize BigInt values. The file is parsed once, on first use.
*/
type FileSource struct {
	path string

	once        sync.Once
	collections Collections
	err         error
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Created(ctx context.Context) ([]Created, error) {
	if err := f.load(ctx); err != nil {
		return nil, err
	}
	return f.collections.Created, nil
}

func (f *FileSource) MetadataURIs(ctx context.Context) ([]MetadataURISet, error) {
	if err := f.load(ctx); err != nil {
		return nil, err
	}
	return f.collections.MetadataURISet, nil
}

func (f *FileSource) PrivateData(ctx context.Context) ([]PrivateDataSet, error) {
	if err := f.load(ctx); err != nil {
		return nil, err
	}
	return f.collections.PrivateDataSet, nil
}

func (f *FileSource) load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.once.Do(func() {
		data, err := os.ReadFile(f.path)
		if err != nil {
			f.err = &SourceError{
				Message:   err.Error(),
				Retryable: false,
				Cause:     ErrCauseReadFailure,
			}
			return
		}
		f.collections, f.err = Parse(data)
	})
	return f.err
}

// Parse decodes an indexer export document.
func Parse(data []byte) (Collections, error) {
	var doc documentDTO
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return Collections{}, &SourceError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseParseFailure,
		}
	}

	collections := Collections{
		Created:        make([]Created, 0, len(doc.Created)),
		MetadataURISet: make([]MetadataURISet, 0, len(doc.MetadataURISet)),
		PrivateDataSet: make([]PrivateDataSet, 0, len(doc.PrivateDataSet)),
	}

	for i, dto := range doc.Created {
		event, err := dto.toCreated()
		if err != nil {
			return Collections{}, invalidEvent("created", i, err)
		}
		collections.Created = append(collections.Created, event)
	}
	for i, dto := range doc.MetadataURISet {
		meta, err := dto.metaDTO.toMeta()
		if err != nil {
			return Collections{}, invalidEvent("metadataURISet", i, err)
		}
		collections.MetadataURISet = append(collections.MetadataURISet, MetadataURISet{
			Meta:        meta,
			MetadataURI: strings.TrimSpace(dto.MetadataURI),
		})
	}
	for i, dto := range doc.PrivateDataSet {
		meta, err := dto.metaDTO.toMeta()
		if err != nil {
			return Collections{}, invalidEvent("privateDataSet", i, err)
		}
		hash, err := parseHash(dto.PrivDataHash)
		if err != nil {
			return Collections{}, invalidEvent("privateDataSet", i, fmt.Errorf("privDataHash: %w", err))
		}
		collections.PrivateDataSet = append(collections.PrivateDataSet, PrivateDataSet{
			Meta:           meta,
			PrivDataHash:   hash,
			EncPrivDataCid: strings.TrimSpace(dto.EncPrivDataCid),
		})
	}

	return collections, nil
}

func invalidEvent(collection string, index int, err error) *SourceError {
	return &SourceError{
		Message:   fmt.Sprintf("%s[%d]: %v", collection, index, err),
		Retryable: false,
		Cause:     ErrCauseInvalidEvent,
	}
}

type documentDTO struct {
	Created        []createdDTO        `json:"created"`
	MetadataURISet []metadataURISetDTO `json:"metadataURISet"`
	PrivateDataSet []privateDataSetDTO `json:"privateDataSet"`
}

// listingIDText takes a listing id written as a JSON string (decimal,
// hex or opaque) or as a JSON number, keeping the number's literal text.
type listingIDText string

func (l *listingIDText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = listingIDText(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("listingId must be a string or a number, got %s", data)
		}
		*l = listingIDText(n.String())
	}
	return nil
}

type metaDTO struct {
	ListingID        listingIDText `json:"listingId"`
	BlockNumber      json.Number   `json:"blockNumber"`
	BlockTimestamp   json.Number   `json:"blockTimestamp"`
	TransactionHash  string        `json:"transactionHash"`
	TransactionIndex *json.Number  `json:"transactionIndex"`
}

type createdDTO struct {
	metaDTO
	Builder      string      `json:"builder"`
	PaymentToken string      `json:"paymentToken"`
	NameHash     string      `json:"nameHash"`
	LocationHash string      `json:"locationHash"`
	NightlyRate  json.Number `json:"nightlyRate"`
	MaxGuests    json.Number `json:"maxGuests"`
	RequireProof bool        `json:"requireProof"`
}

type metadataURISetDTO struct {
	metaDTO
	MetadataURI string `json:"metadataURI"`
}

type privateDataSetDTO struct {
	metaDTO
	PrivDataHash   string `json:"privDataHash"`
	EncPrivDataCid string `json:"encPrivDataCid"`
}

func (d metaDTO) toMeta() (Meta, error) {
	listingID := strings.TrimSpace(string(d.ListingID))
	if listingID == "" {
		return Meta{}, fmt.Errorf("listingId is required")
	}
	blockNumber, err := parseUint(d.BlockNumber, 64)
	if err != nil {
		return Meta{}, fmt.Errorf("blockNumber: %w", err)
	}
	blockTimestamp, err := parseUint(d.BlockTimestamp, 63)
	if err != nil {
		return Meta{}, fmt.Errorf("blockTimestamp: %w", err)
	}
	txHash, err := parseHash(d.TransactionHash)
	if err != nil {
		return Meta{}, fmt.Errorf("transactionHash: %w", err)
	}

	meta := Meta{
		ListingID:       listingID,
		BlockNumber:     blockNumber,
		BlockTimestamp:  int64(blockTimestamp),
		TransactionHash: txHash,
	}
	if d.TransactionIndex != nil {
		txIndex, err := parseUint(*d.TransactionIndex, 64)
		if err != nil {
			return Meta{}, fmt.Errorf("transactionIndex: %w", err)
		}
		meta.TransactionIndex = &txIndex
	}
	return meta, nil
}

func (d createdDTO) toCreated() (Created, error) {
	meta, err := d.metaDTO.toMeta()
	if err != nil {
		return Created{}, err
	}
	builder, err := parseAddress(d.Builder)
	if err != nil {
		return Created{}, fmt.Errorf("builder: %w", err)
	}
	paymentToken, err := parseAddress(d.PaymentToken)
	if err != nil {
		return Created{}, fmt.Errorf("paymentToken: %w", err)
	}
	nameHash, err := parseHash(d.NameHash)
	if err != nil {
		return Created{}, fmt.Errorf("nameHash: %w", err)
	}
	locationHash, err := parseHash(d.LocationHash)
	if err != nil {
		return Created{}, fmt.Errorf("locationHash: %w", err)
	}
	nightlyRate, err := ParseAmount(d.NightlyRate.String())
	if err != nil {
		return Created{}, fmt.Errorf("nightlyRate: %w", err)
	}
	maxGuests, err := parseUint(d.MaxGuests, 32)
	if err != nil {
		return Created{}, fmt.Errorf("maxGuests: %w", err)
	}

	return Created{
		Meta:         meta,
		Builder:      builder,
		PaymentToken: paymentToken,
		NameHash:     nameHash,
		LocationHash: locationHash,
		NightlyRate:  nightlyRate,
		MaxGuests:    uint32(maxGuests),
		RequireProof: d.RequireProof,
	}, nil
}

// ParseAmount parses a base-10 token amount. An empty string is zero.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uint256.NewInt(0), nil
	}
	return uint256.FromDecimal(s)
}

// parseUint accepts a JSON number or decimal string; empty means zero.
func parseUint(n json.Number, bitSize int) (uint64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, bitSize)
}

// parseAddress accepts an empty string as the zero address.
func parseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not a hex address", s)
	}
	return common.HexToAddress(s), nil
}

// parseHash accepts an empty string as the zero hash.
func parseHash(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Hash{}, nil
	}
	hexPart := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(hexPart) != 2*common.HashLength || !isHex(hexPart) {
		return common.Hash{}, fmt.Errorf("%q is not a 32-byte hex hash", s)
	}
	return common.HexToHash(s), nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
