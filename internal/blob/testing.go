package blob

import (
	"contactbook/internal/infra/blob/memory"
	"contactbook/internal/infra/blob/s3"
)

// NewMemory returns an empty in-memory store.
func NewMemory() Store {
	return memory.New()
}

// NewMockS3ForTests returns an S3 store backed by an in-process fake transport.
func NewMockS3ForTests() Store {
	return s3.NewMockForTests(0)
}
