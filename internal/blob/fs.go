package blob

import (
	fsstore "bookshelf/internal/infra/blob/fs"
)

// NewFilesystem returns a blob.Store rooted at the given directory, creating it if needed.
func NewFilesystem(root string) (Store, error) {
	s, err := fsstore.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}
