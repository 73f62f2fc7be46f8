package storage

// WriteResult describes one persisted artifact.
type WriteResult struct {
	contentHash string // identity (filename without extension)
	path        string
	entries     int
}

func NewWriteResult(
	contentHash string,
	path string,
	entries int,
) WriteResult {
	return WriteResult{
		contentHash: contentHash,
		path:        path,
		entries:     entries,
	}
}

func (w *WriteResult) ContentHash() string {
	return w.contentHash
}

func (w *WriteResult) Path() string {
	return w.path
}

// Entries is the number of listings or resolutions in the artifact.
func (w *WriteResult) Entries() int {
	return w.entries
}

const (
	listingSnapshotPrefix = "listings-"
	resolutionDumpPrefix  = "resolutions-"
	fileExtension         = ".json"
	// hex characters of the content hash kept in file names
	fileHashLength = 12
)
