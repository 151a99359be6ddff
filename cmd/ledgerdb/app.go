// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ava-labs/ledgerdb/config"
	"github.com/ava-labs/ledgerdb/database"
	"github.com/ava-labs/ledgerdb/database/factory"
	"github.com/ava-labs/ledgerdb/reconcile"
	"github.com/ava-labs/ledgerdb/statedb"
	"github.com/ava-labs/ledgerdb/trace"
	"github.com/ava-labs/ledgerdb/utils/logging"
	"github.com/ava-labs/ledgerdb/utils/wrappers"
)

var errMissingOtherDBPath = fmt.Errorf("--%s must be set", config.DBOtherPathKey)

// app holds what every command shares.
type app struct {
	config     config.Config
	logFactory logging.Factory
	log        logging.Logger
	registry   *prometheus.Registry
	tracer     trace.Tracer
}

func newApp(fs *pflag.FlagSet) (*app, error) {
	v, err := config.BuildViper(fs)
	if err != nil {
		return nil, err
	}
	cfg, err := config.GetConfig(v)
	if err != nil {
		return nil, err
	}

	// Commands only read stores, so nothing is ever pruned from them.
	cfg.Store.Pruner.Ledger.Enable = false
	cfg.Store.Pruner.StateMerkle.Enable = false
	cfg.Store.Pruner.EpochSnapshot.Enable = false

	logFactory := logging.NewFactory(cfg.Log)
	log, err := logFactory.Make("main")
	if err != nil {
		logFactory.Close()
		return nil, fmt.Errorf("couldn't create logger: %w", err)
	}
	return &app{
		config:     cfg,
		logFactory: logFactory,
		log:        log,
		registry:   prometheus.NewRegistry(),
		tracer:     trace.New(cfg.Trace),
	}, nil
}

func (a *app) reconciler() *reconcile.Reconciler {
	return reconcile.New(a.log, a.tracer, a.config.Reconcile)
}

// openedStore is a store together with the database it was opened on.
type openedStore struct {
	*statedb.Store
	db database.Database
}

func (s *openedStore) Close() error {
	errs := wrappers.Errs{}
	errs.Add(
		s.Store.Close(),
		s.db.Close(),
	)
	return errs.Err
}

// openStore opens the store at [dbConfig], registering its metrics under
// [name].
func (a *app) openStore(name string, dbConfig factory.DatabaseConfig) (*openedStore, error) {
	reg := prometheus.WrapRegistererWithPrefix(name+"_", a.registry)
	db, err := factory.NewDatabase(dbConfig, reg, a.log, "db_")
	if err != nil {
		return nil, err
	}
	store, err := statedb.New(a.log, db, a.config.Store, reg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("couldn't open store %s: %w", name, err)
	}
	a.log.Info("opened store",
		zap.String("name", name),
		zap.String("path", dbConfig.Path),
	)
	return &openedStore{
		Store: store,
		db:    db,
	}, nil
}

// openPair opens the store at the database path and the store to reconcile
// against it.
func (a *app) openPair() (*openedStore, *openedStore, error) {
	if a.config.OtherDB.Path == "" {
		return nil, nil, errMissingOtherDBPath
	}
	storeA, err := a.openStore("a", a.config.DB)
	if err != nil {
		return nil, nil, err
	}
	storeB, err := a.openStore("b", a.config.OtherDB)
	if err != nil {
		return nil, nil, errors.Join(err, storeA.Close())
	}
	return storeA, storeB, nil
}

func (a *app) closeStores(stores ...*openedStore) {
	for _, s := range stores {
		if err := s.Close(); err != nil {
			a.log.Error("failed to close store", zap.Error(err))
		}
	}
}

func (a *app) Close() {
	a.logFactory.Close()
}
