package interfaces

import "github.com/ternarybob/seoforge/internal/models"

// ItemStore is the ordered collection of work items shared by the importer,
// the batch processor and the presentation layer
type ItemStore interface {
	Append(items []models.WorkItem) ([]int, error)
	Update(index int, patch models.ItemPatch) (models.WorkItem, error)
	Get(index int) (models.WorkItem, error)
	Snapshot() []models.WorkItem
	Len() int
	Stats() models.ItemStats
	Clear()
}
