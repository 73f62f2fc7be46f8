package index

import (
	"encoding/json"

	"github.com/rohmanhakim/listing-enricher/internal/content"
	"github.com/rohmanhakim/listing-enricher/internal/events"
	"github.com/rohmanhakim/listing-enricher/internal/render"
)

type listingJSON struct {
	ListingID       string                    `json:"listingId"`
	DisplayName     string                    `json:"displayName"`
	DisplayLocation string                    `json:"displayLocation"`
	HasMetadata     bool                      `json:"hasMetadata"`
	HasPrivateData  bool                      `json:"hasPrivateData"`
	MetadataURI     string                    `json:"metadataURI,omitempty"`
	Metadata        *content.ResolvedMetadata `json:"metadata,omitempty"`
	DescriptionMD   string                    `json:"descriptionMarkdown,omitempty"`
	DescriptionHTML string                    `json:"descriptionHtml,omitempty"`
	DescriptionText string                    `json:"descriptionText,omitempty"`
	Links           []render.Link             `json:"descriptionLinks,omitempty"`
	UpdatedAtBlock  uint64                    `json:"updatedAtBlock"`
	Created         *createdJSON              `json:"created,omitempty"`
	PrivateData     *privateDataJSON          `json:"privateData,omitempty"`
}

type metaJSON struct {
	BlockNumber      uint64  `json:"blockNumber"`
	BlockTimestamp   int64   `json:"blockTimestamp"`
	TransactionHash  string  `json:"transactionHash"`
	TransactionIndex *uint64 `json:"transactionIndex,omitempty"`
}

type createdJSON struct {
	metaJSON
	Builder      string `json:"builder"`
	PaymentToken string `json:"paymentToken"`
	NameHash     string `json:"nameHash"`
	LocationHash string `json:"locationHash"`
	NightlyRate  string `json:"nightlyRate"`
	MaxGuests    uint32 `json:"maxGuests"`
	RequireProof bool   `json:"requireProof"`
}

type privateDataJSON struct {
	metaJSON
	PrivDataHash   string `json:"privDataHash"`
	EncPrivDataCid string `json:"encPrivDataCid"`
}

// MarshalJSON renders hashes and addresses as hex and amounts as decimal
// strings.
func (l EnhancedListing) MarshalJSON() ([]byte, error) {
	view := listingJSON{
		ListingID:       l.ListingID,
		DisplayName:     l.DisplayName,
		DisplayLocation: l.DisplayLocation,
		HasMetadata:     l.HasMetadata,
		HasPrivateData:  l.HasPrivateData,
		MetadataURI:     l.MetadataURI,
		Metadata:        l.Metadata,
		DescriptionMD:   l.DescriptionMarkdown,
		DescriptionHTML: l.DescriptionHTML,
		DescriptionText: l.DescriptionText,
		Links:           l.DescriptionLinks,
		UpdatedAtBlock:  l.UpdatedAtBlock,
	}
	if l.Created != nil {
		nightlyRate := "0"
		if l.Created.NightlyRate != nil {
			nightlyRate = l.Created.NightlyRate.Dec()
		}
		view.Created = &createdJSON{
			metaJSON:     toMetaJSON(l.Created.Meta),
			Builder:      l.Created.Builder.Hex(),
			PaymentToken: l.Created.PaymentToken.Hex(),
			NameHash:     l.Created.NameHash.Hex(),
			LocationHash: l.Created.LocationHash.Hex(),
			NightlyRate:  nightlyRate,
			MaxGuests:    l.Created.MaxGuests,
			RequireProof: l.Created.RequireProof,
		}
	}
	if l.PrivateData != nil {
		view.PrivateData = &privateDataJSON{
			metaJSON:       toMetaJSON(l.PrivateData.Meta),
			PrivDataHash:   l.PrivateData.PrivDataHash.Hex(),
			EncPrivDataCid: l.PrivateData.EncPrivDataCid,
		}
	}
	return json.Marshal(view)
}

func toMetaJSON(meta events.Meta) metaJSON {
	return metaJSON{
		BlockNumber:      meta.BlockNumber,
		BlockTimestamp:   meta.BlockTimestamp,
		TransactionHash:  meta.TransactionHash.Hex(),
		TransactionIndex: meta.TransactionIndex,
	}
}
