package ports

// BlobReaper deletes blobs after their record has been retired.
type BlobReaper interface {
	Schedule(location string)
}
