package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/logger"
	"github.com/estately/estately-server/internal/search"
	"github.com/estately/estately-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// SearchIndex is nil when search is disabled.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.SearchIndex == nil {
		return nil
	}
	return h.Close()
}

// Indexer returns the index as a service.Indexer, or nil when disabled so
// services fall back to their no-op.
func (h *SearchIndexHandle) Indexer() service.Indexer {
	if h.SearchIndex == nil {
		return nil
	}
	return h.SearchIndex
}

// Searcher returns the index as a service.Searcher, or nil when disabled.
func (h *SearchIndexHandle) Searcher() service.Searcher {
	if h.SearchIndex == nil {
		return nil
	}
	return h.SearchIndex
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Search index disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewSearchIndex(search.Options{
		DataPath: filepath.Join(cfg.Data.BasePath, "search"),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}
