package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gchickering21/downballot/internal/bridge"
	dberrors "github.com/gchickering21/downballot/internal/errors"
	"github.com/gchickering21/downballot/internal/logging"
	"github.com/gchickering21/downballot/internal/sources"
)

// Orchestrator implements sources.Fetcher. Each invocation gets a fresh
// fetch id, dispatches to the transport the source's retrieval kind
// requires, and stamps provenance onto every produced row.
type Orchestrator struct {
	client *Client
	bridge *bridge.Bridge
	// environment names the runtime environment to bind on first browser
	// use; empty means the descriptor's default.
	environment string
	logger      *logging.Logger
}

// NewOrchestrator wires the fetch dependencies. The bridge is only touched
// when a browser-automation source is actually fetched, and environment
// selects which declared runtime environment that first use binds.
func NewOrchestrator(client *Client, b *bridge.Bridge, environment string, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{client: client, bridge: b, environment: environment, logger: logger}
}

// Fetch retrieves rows for one (source, jurisdiction, level, range)
func (o *Orchestrator) Fetch(ctx context.Context, spec sources.FetchSpec) (*sources.FetchResult, error) {
	stateCfg, err := spec.Profile.StateConfigFor(spec.Jurisdiction)
	if err != nil {
		return nil, err
	}

	fetchID := uuid.NewString()
	o.logger.Info("Fetch started", map[string]interface{}{
		"fetchId":      fetchID,
		"source":       spec.Profile.ID,
		"jurisdiction": spec.Jurisdiction,
		"level":        spec.Level,
		"kind":         stateCfg.RetrievalKind,
		"range":        spec.Start.String() + ".." + spec.End.String(),
	})

	var result *sources.FetchResult
	switch stateCfg.RetrievalKind {
	case sources.KindZipArchive:
		result, err = o.fetchArchives(ctx, spec)
	case sources.KindTabularHTTP:
		if spec.Profile.ID == sources.SourceBallotpedia {
			result, err = o.fetchSchoolBoards(ctx, spec, stateCfg)
		} else {
			result, err = o.fetchElectionStats(ctx, spec, stateCfg, o.httpPageLoader())
		}
	case sources.KindBrowser:
		loader, berr := o.browserPageLoader(spec.Jurisdiction)
		if berr != nil {
			return nil, berr
		}
		result, err = o.fetchElectionStats(ctx, spec, stateCfg, loader)
	default:
		return nil, dberrors.New(
			dberrors.InternalError,
			fmt.Sprintf("source '%s' declares unknown retrieval kind '%s'", spec.Profile.ID, stateCfg.RetrievalKind),
			nil,
		)
	}
	if err != nil {
		return nil, err
	}

	retrievedAt := time.Now().UTC().Format(time.RFC3339)
	for i := range result.Rows {
		result.Rows[i].FetchID = fetchID
		result.Rows[i].RetrievedAt = retrievedAt
	}
	if result.Status == "" {
		if len(result.Rows) == 0 {
			result.Status = sources.FetchEmpty
		} else {
			result.Status = sources.FetchOK
		}
	}

	o.logger.Info("Fetch finished", map[string]interface{}{
		"fetchId": fetchID,
		"status":  result.Status,
		"rows":    len(result.Rows),
	})
	return result, nil
}

// pageLoader abstracts "give me the rendered HTML of this URL" so the
// classic and browser ElectionStats paths share one parser.
type pageLoader func(ctx context.Context, url string) ([]byte, error)

func (o *Orchestrator) httpPageLoader() pageLoader {
	return func(ctx context.Context, url string) ([]byte, error) {
		return o.client.Get(ctx, url)
	}
}

// browserPageLoader binds the bridge to the configured environment and
// returns a loader that renders pages in the bound browser. An unbound or
// conflicted bridge surfaces as a fatal error, never a degraded fetch.
func (o *Orchestrator) browserPageLoader(jurisdiction string) (pageLoader, error) {
	if o.bridge == nil {
		return nil, dberrors.New(
			dberrors.BridgeUnbound,
			fmt.Sprintf("jurisdiction '%s' requires browser automation but no bridge is configured", jurisdiction),
			nil,
		)
	}
	if err := o.bridge.EnsureBound(o.environment); err != nil {
		return nil, err
	}
	browser, err := o.bridge.Browser()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, url string) ([]byte, error) {
		return renderPage(ctx, browser, url)
	}, nil
}
