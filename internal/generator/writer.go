package generator

import (
	"fmt"

	"github.com/vanshika/mapnav/backend/internal/dataset"
	"github.com/vanshika/mapnav/backend/internal/domain"
)

// WriteDataset serializes the building to path; the extension picks JSON or YAML.
func WriteDataset(ds domain.Dataset, path string) error {
	if err := dataset.Write(path, ds); err != nil {
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	return nil
}
