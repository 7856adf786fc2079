package main

import (
	"fmt"

	"github.com/jonathan/jobstats/internal/aggregation"
	"github.com/jonathan/jobstats/internal/config"
	"github.com/jonathan/jobstats/internal/dataaccess"
	"github.com/jonathan/jobstats/internal/metrics"
)

// engineOptions converts the engine section of the config.
func engineOptions(c config.EngineConfig) (aggregation.Options, error) {
	policy, err := aggregation.ParseCorrelationPolicy(c.CorrelationPolicy)
	if err != nil {
		return aggregation.Options{}, err
	}
	return aggregation.Options{
		PageSize:               c.PageSize,
		CallTimeout:            c.CallTimeout.Std(),
		CorrelationConcurrency: c.CorrelationConcurrency,
		ExpansionConcurrency:   c.ExpansionConcurrency,
		CorrelationPolicy:      policy,
	}, nil
}

// dialEngine connects to the data access service at addr and builds an engine over it.
// m may be nil. The caller closes the returned client.
func (a *app) dialEngine(addr string, m *metrics.Metrics) (*aggregation.Engine, *dataaccess.Client, error) {
	opts, err := engineOptions(a.cfg.Engine)
	if err != nil {
		return nil, nil, err
	}

	clientOpts := dataaccess.ClientOptions{
		RateLimit: a.cfg.DataAccess.RateLimit,
		RateBurst: a.cfg.DataAccess.RateBurst,
	}
	var recorder aggregation.Recorder
	if m != nil {
		clientOpts.Recorder = m
		recorder = m
	}

	client, err := dataaccess.Dial(addr, clientOpts)
	if err != nil {
		return nil, nil, err
	}

	engine, err := aggregation.NewEngine(client, opts, a.log.WithField("component", "engine"), recorder)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return engine, client, nil
}
