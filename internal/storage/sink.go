package storage

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/content"
	"github.com/rohmanhakim/listing-enricher/internal/index"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/pkg/failure"
	"github.com/rohmanhakim/listing-enricher/pkg/fileutil"
	"github.com/rohmanhakim/listing-enricher/pkg/hashutil"
)

/*
Responsibilities
- Persist enhanced listing snapshots
- Persist resolution dumps
- Ensure deterministic filenames

Output Characteristics
- File name is derived from the content hash, so equal output maps to
  the same file
- Writes are atomic; reruns overwrite safely
*/

type Sink interface {
	WriteListings(
		outputDir string,
		listings []index.EnhancedListing,
		hashAlgo hashutil.HashAlgo,
	) (WriteResult, failure.ClassifiedError)
	WriteResolutions(
		outputDir string,
		resolutions map[string]content.ResolvedMetadata,
		hashAlgo hashutil.HashAlgo,
	) (WriteResult, failure.ClassifiedError)
}

type LocalSink struct {
	metadataSink metadata.MetadataSink
}

func NewLocalSink(
	metadataSink metadata.MetadataSink,
) LocalSink {
	return LocalSink{
		metadataSink: metadataSink,
	}
}

func (s *LocalSink) WriteListings(
	outputDir string,
	listings []index.EnhancedListing,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, failure.ClassifiedError) {
	if listings == nil {
		listings = []index.EnhancedListing{}
	}
	return s.write(
		"LocalSink.WriteListings",
		metadata.ArtifactListingSnapshot,
		outputDir,
		listingSnapshotPrefix,
		listings,
		len(listings),
		hashAlgo,
	)
}

// WriteResolutions persists the identifier -> record mapping. Keys are
// written in sorted order by encoding/json.
func (s *LocalSink) WriteResolutions(
	outputDir string,
	resolutions map[string]content.ResolvedMetadata,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, failure.ClassifiedError) {
	if resolutions == nil {
		resolutions = map[string]content.ResolvedMetadata{}
	}
	return s.write(
		"LocalSink.WriteResolutions",
		metadata.ArtifactResolutionDump,
		outputDir,
		resolutionDumpPrefix,
		resolutions,
		len(resolutions),
		hashAlgo,
	)
}

func (s *LocalSink) write(
	action string,
	kind metadata.ArtifactKind,
	outputDir string,
	prefix string,
	payload any,
	entries int,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, failure.ClassifiedError) {
	writeResult, err := write(outputDir, prefix, payload, entries, hashAlgo)
	if err != nil {
		var storageError *StorageError
		errors.As(err, &storageError)
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			action,
			mapStorageErrorToMetadataCause(storageError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrWritePath, storageError.Path),
				metadata.NewAttr(metadata.AttrMessage, storageError.Message),
			},
		)
		return WriteResult{}, storageError
	}
	s.metadataSink.RecordArtifact(
		kind,
		writeResult.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, writeResult.Path()),
			metadata.NewAttr(metadata.AttrContentHash, writeResult.ContentHash()),
			metadata.NewAttr(metadata.AttrEntries, strconv.Itoa(writeResult.Entries())),
		},
	)
	return writeResult, nil
}

func write(
	outputDir string,
	prefix string,
	payload any,
	entries int,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, failure.ClassifiedError) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseEncodeFailure,
		}
	}
	data = append(data, '\n')

	contentHash, err := hashutil.HashBytes(data, hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
		}
	}

	if err := fileutil.EnsureDir(outputDir); err != nil {
		return WriteResult{}, fromFileError(err, outputDir)
	}

	fullPath := filepath.Join(outputDir, prefix+contentHash[:fileHashLength]+fileExtension)
	if err := fileutil.WriteFileAtomic(fullPath, data); err != nil {
		return WriteResult{}, fromFileError(err, fullPath)
	}

	return NewWriteResult(contentHash, fullPath, entries), nil
}

func fromFileError(err error, path string) *StorageError {
	var fileErr *fileutil.FileError
	if !errors.As(err, &fileErr) {
		return &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      path,
		}
	}
	cause := ErrCauseWriteFailure
	switch fileErr.Cause {
	case fileutil.ErrCausePathError:
		cause = ErrCausePathError
	case fileutil.ErrCauseDiskFull:
		cause = ErrCauseDiskFull
	}
	return &StorageError{
		Message:   fileErr.Message,
		Retryable: fileErr.Retryable,
		Cause:     cause,
		Path:      path,
	}
}
