// Package scigoneptune exports gradient boosting training runs to an
// experiment tracking service and syncs experiments recorded as JSON files.
//
// There are two entry points.
//
// The monitor package builds a training callback. Attach it to a boost.Train
// or boost.CV run and it records every evaluation metric each round. On the
// last round it uploads the trained model, a feature importance chart and
// drawings of selected trees.
//
// The neptune-sync command (package jsonsync) turns an experiment JSON file
// into a driver script and a config file, runs `neptune run` on them and
// removes both.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "log"
//
//	    "github.com/YuminosukeSato/scigo-neptune/boost"
//	    "github.com/YuminosukeSato/scigo-neptune/monitor"
//	    "github.com/YuminosukeSato/scigo-neptune/tracking"
//	    "github.com/spf13/afero"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
//	    dtrain, err := boost.NewDataset(X, []float64{2, 4, 6, 8}, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    session, err := tracking.NewDirSession(afero.NewOsFs(), "runs")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer session.Stop()
//
//	    exporter, err := monitor.New(session, monitor.DefaultConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    evals := []boost.EvalSet{{Name: "train", Data: dtrain}}
//	    if _, err := boost.Train(boost.DefaultParams(), dtrain, evals, exporter); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Packages
//
//   - boost: gradient boosted trees with a per-round callback protocol
//   - monitor: the training-event exporter callback
//   - tracking: the Session interface with in-memory and directory backends
//   - plotting: importance charts and tree drawings (gonum/plot)
//   - jsonsync: experiment JSON parsing, script generation and the sync flow
//   - metrics: evaluation metrics (MSE, RMSE, MAE, log loss, error rate)
//   - pkg/errors: typed errors and warnings
//   - pkg/log: structured logging backed by zerolog
package scigoneptune
