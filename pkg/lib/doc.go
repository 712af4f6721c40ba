// Package lib provides a Go SDK for managing tilegrab download tasks
// programmatically.
//
// This package allows applications to create, run, and track map tile bulk
// downloads without shelling out to the tilegrab CLI binary. It is useful
// for scripting, automation, and building tools on top of tilegrab.
//
// # Quick Start
//
// Create a client, create a task and download it:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	task, err := client.CreateTask(ctx, lib.CreateTaskOpts{
//		Name:       "beijing",
//		Platform:   "osm",
//		Bounds:     lib.Bounds{North: 40.2, South: 39.6, East: 116.8, West: 116.0},
//		Zooms:      []int{10, 11, 12},
//		OutputPath: "beijing.mbtiles",
//	})
//	if err != nil {
//		return err
//	}
//
//	_, err = client.StartTask(ctx, task.Name)
//	if err != nil {
//		return err
//	}
//
//	final, err := client.FollowTask(ctx, task.Name)
//	if err != nil {
//		return err
//	}
//	fmt.Printf("%s: %d/%d tiles\n", final.Status, final.CompletedTiles, final.TotalTiles)
//
// # Engines
//
// The client supports multiple download backends:
//
//   - [EngineHTTP]: fetches real tiles over HTTP from the task's platform
//     (default).
//   - [EngineFake]: in-memory simulation, no network and no output files.
//
// Select the engine with [Config.Engine].
//
// # Downloads Run In-Process
//
// Downloads run inside the client's process. Closing the client or exiting
// the process stops them, so pause running tasks first: a paused task keeps
// its counters and a later client resumes it with [Client.StartTask] from
// where it left off. Task state and per-tile progress live in the SQLite
// database at [Config.DBPath], nothing is lost by pausing.
//
// # Estimating
//
// [Client.Estimate] previews a bounds/zoom selection without creating
// anything:
//
//	est, err := client.Estimate(ctx, lib.EstimateOpts{
//		Platform: "osm",
//		Bounds:   lib.Bounds{North: 40.2, South: 39.6, East: 116.8, West: 116.0},
//		Zooms:    []int{10, 11, 12},
//	})
//
// # Converting Output
//
// [Client.Convert] repacks a finished output into another container kind
// (folder tree, MBTiles, ZIP). It reads the container directly and needs no
// task record.
//
// # Error Handling
//
// Errors wrap a small set of sentinels, inspect them with [errors.Is]:
//
//	task, err := client.GetTask(ctx, "beijing")
//	if errors.Is(err, lib.ErrNotFound) {
//		// No such task.
//	}
//
// See [ErrNotFound], [ErrAlreadyExists], [ErrNotValid], [ErrIllegalState]
// and [ErrOutOfRange].
//
// # Testing
//
// Use [EngineFake] with a temporary database for tests that need no network
// or tile output:
//
//	client, err := lib.New(ctx, lib.Config{
//		DBPath:  filepath.Join(t.TempDir(), "test.db"),
//		DataDir: t.TempDir(),
//		Engine:  lib.EngineFake,
//	})
//
// The fake engine walks every task it starts to completion in a few hundred
// milliseconds, so lifecycle tests run fast and deterministic.
//
// # Thread Safety
//
// A [Client] is safe for concurrent use. Task state lives in SQLite (WAL
// mode) and the download backend serializes its own run bookkeeping, so
// operations can be issued from multiple goroutines.
package lib
