package events

import (
	"context"
)

// Source is a pull API over already-indexed listing events. Each call
// returns one collection in arrival order.
type Source interface {
	Created(ctx context.Context) ([]Created, error)
	MetadataURIs(ctx context.Context) ([]MetadataURISet, error)
	PrivateData(ctx context.Context) ([]PrivateDataSet, error)
}

// Load pulls all three collections from src.
func Load(ctx context.Context, src Source) (Collections, error) {
	created, err := src.Created(ctx)
	if err != nil {
		return Collections{}, err
	}
	metadataURIs, err := src.MetadataURIs(ctx)
	if err != nil {
		return Collections{}, err
	}
	privateData, err := src.PrivateData(ctx)
	if err != nil {
		return Collections{}, err
	}
	return Collections{
		Created:        created,
		MetadataURISet: metadataURIs,
		PrivateDataSet: privateData,
	}, nil
}
