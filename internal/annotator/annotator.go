package annotator

import (
	"context"
	"errors"

	"github.com/aleister1102/pagewatch/internal/models"
)

// ErrUnavailable indicates the annotation capability could not produce an
// annotation for this record. Callers append the record unannotated; this is
// never a job error.
var ErrUnavailable = errors.New("annotation unavailable")

// Annotator is the port to the external classification capability. It is
// called at most once per ChangeRecord and never retried within a check
// cycle; annotation is best-effort enrichment, never blocking detection.
type Annotator interface {
	Annotate(ctx context.Context, record models.ChangeRecord) (*models.Annotation, error)
}
