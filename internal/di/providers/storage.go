package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/logger"
	"github.com/estately/estately-server/internal/objectstore"
)

// propertyImagesBucket holds listing photos and tax receipts.
const propertyImagesBucket = "property-images"

// ProvidePropertyImages provides the listing object bucket.
func ProvidePropertyImages(i do.Injector) (*objectstore.Bucket, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	bucket, err := objectstore.NewBucket(cfg.Data.ObjectsPath(), propertyImagesBucket, cfg.Server.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("property image bucket: %w", err)
	}

	log.Info("Object bucket ready",
		"bucket", bucket.Name(),
		"root", bucket.Root(),
	)

	return bucket, nil
}
