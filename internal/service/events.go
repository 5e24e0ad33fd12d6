package service

import (
	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/sse"
)

// EventEmitter publishes server-sent events.
type EventEmitter interface {
	Emit(event sse.Event)
}

// Indexer keeps the search index in step with a listing.
type Indexer interface {
	Sync(p *domain.Property) error
}

type noopEmitter struct{}

func (noopEmitter) Emit(sse.Event) {}

type noopIndexer struct{}

func (noopIndexer) Sync(*domain.Property) error { return nil }

func emitterOrNoop(e EventEmitter) EventEmitter {
	if e == nil {
		return noopEmitter{}
	}
	return e
}

func indexerOrNoop(i Indexer) Indexer {
	if i == nil {
		return noopIndexer{}
	}
	return i
}
