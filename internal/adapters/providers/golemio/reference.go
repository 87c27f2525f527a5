package golemio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/sync/errgroup"

	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
	"github.com/okian/homedash/pkg/metrics"
)

// Reference dataset keys.
const (
	DatasetRoutes = "routes"
	DatasetAlerts = "alerts"
)

const (
	defaultTTL         = time.Hour
	defaultLoadTimeout = 30 * time.Second
	referenceSize      = 4
)

// ReferenceSource loads the slow-changing datasets.
type ReferenceSource interface {
	Routes(ctx context.Context) ([]model.Route, error)
	Alerts(ctx context.Context) ([]model.Alert, error)
}

// Reference caches the route table and the alert list. Reads never block:
// a missing or expired dataset reads as empty and is loaded in the
// background.
type Reference struct {
	source      ReferenceSource
	cache       gcache.Cache
	ttl         time.Duration
	loadTimeout time.Duration
	logger      logger.Logger
}

// NewReference creates a Reference over source.
func NewReference(source ReferenceSource, opts ...ReferenceOption) *Reference {
	r := &Reference{
		source:      source,
		ttl:         defaultTTL,
		loadTimeout: defaultLoadTimeout,
		logger:      logger.Get().Named("golemio.reference"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = gcache.New(referenceSize).
		LRU().
		Expiration(r.ttl).
		LoaderFunc(func(key interface{}) (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), r.loadTimeout)
			defer cancel()
			return r.load(ctx, key.(string))
		}).
		Build()
	return r
}

// Routes returns the cached route table, or an empty table while loading.
func (r *Reference) Routes() model.RouteTable {
	v, err := r.cache.GetIFPresent(DatasetRoutes)
	if err != nil {
		return model.RouteTable{}
	}
	return v.(model.RouteTable)
}

// Alerts returns the cached alerts, or nil while loading.
func (r *Reference) Alerts() []model.Alert {
	v, err := r.cache.GetIFPresent(DatasetAlerts)
	if err != nil {
		return nil
	}
	return v.([]model.Alert)
}

// Warm loads both datasets concurrently.
func (r *Reference) Warm(ctx context.Context) error {
	var g errgroup.Group
	for _, key := range []string{DatasetRoutes, DatasetAlerts} {
		g.Go(func() error {
			v, err := r.load(ctx, key)
			if err != nil {
				return err
			}
			return r.cache.Set(key, v)
		})
	}
	return g.Wait()
}

// Loaded reports which datasets are currently cached.
func (r *Reference) Loaded() map[string]bool {
	return map[string]bool{
		DatasetRoutes: r.cache.Has(DatasetRoutes),
		DatasetAlerts: r.cache.Has(DatasetAlerts),
	}
}

func (r *Reference) load(ctx context.Context, key string) (interface{}, error) {
	var (
		v   interface{}
		err error
	)
	switch key {
	case DatasetRoutes:
		var routes []model.Route
		routes, err = r.source.Routes(ctx)
		v = model.NewRouteTable(routes)
	case DatasetAlerts:
		var alerts []model.Alert
		alerts, err = r.source.Alerts(ctx)
		v = alerts
	default:
		return nil, fmt.Errorf("unknown reference dataset %q", key)
	}
	if err != nil {
		metrics.RecordReferenceLoad(key, metrics.OutcomeFailure)
		if !errors.Is(err, context.Canceled) {
			r.logger.Warn(ctx, "reference load failed", logger.String("dataset", key), logger.Error(err))
		}
		return nil, err
	}
	metrics.RecordReferenceLoad(key, metrics.OutcomeSuccess)
	r.logger.Debug(ctx, "reference loaded", logger.String("dataset", key))
	return v, nil
}
