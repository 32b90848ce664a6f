// pkg/source/source.go
package source

import (
	"context"

	"github.com/David-Botos/texture-ingress/pkg/model"
)

// Source loads one tabular batch of lithology records
type Source interface {
	// Name identifies the source in logs, anomalies and metrics
	Name() string

	// Load reads the whole batch
	Load(ctx context.Context) (*model.Batch, error)
}
