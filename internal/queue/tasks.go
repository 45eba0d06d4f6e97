// Package queue moves usage persistence off the request path. The generation
// handler responds as soon as the document is ready; the worker writes the
// statistics row.
package queue

import "github.com/medidocs/backend/internal/models"

const TypeUsageSave = "usage:save"

// UsageSavePayload carries one usage record to the worker.
type UsageSavePayload struct {
	Record models.UsageRecord `json:"record"`
}
