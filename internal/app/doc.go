// Package app provides the orchestration layer for the CaptionCraft client.
//
// # Overview
//
// This package wires together configuration, the API client, the local
// cache, session handling, the feed engine, and the UI to create the
// complete CaptionCraft experience. It serves as the composition root
// where all dependencies are initialized and connected.
//
// # Architecture
//
// The app package follows a simple initialization pattern:
//
//  1. Load configuration from ~/.config/captioncraft/config.toml
//  2. Initialize the HTTP client for the CaptionCraft server API
//  3. Verify the server is reachable before starting the UI
//  4. Open the SQLite post cache
//  5. Create the session manager, feed engine, and mutator
//  6. Resume any persisted identity from the cache
//  7. Launch the background refresher goroutine
//  8. Start the TUI and block until the user exits or the context cancels
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read configuration
//	       ├─────> api.NewClient()      Create HTTP client
//	       ├─────> store.Open()         Open SQLite cache
//	       ├─────> session.NewManager() Session + credential holder
//	       ├─────> feed.NewEngine()     Sync engine over gateway + cache
//	       ├─────> StartRefresher()     Launch background reloads
//	       └─────> ui.Run()             Start TUI (blocks)
//
//	Background Refresher Loop:
//	┌─────────────────────────────────────────┐
//	│ StartRefresher() goroutine              │
//	│  ├─> engine.LoadFeed()                  │
//	│  │    └─> fetch, merge cache, captions  │
//	│  └─> backoff doubles per failure        │
//	│      └─> UI receives engine snapshots   │
//	└─────────────────────────────────────────┘
//
// A second goroutine watches the cache's change feed and calls
// engine.SyncFromCache so writes that bypass a feed load (a logout wipe,
// an upserted provisional post) still reach the view.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file invalid
//   - API client initialization failure
//   - Initial server availability check failure (3 second timeout)
//   - Cache open failure
//
// Recoverable errors (absorbed, refreshing continues):
//   - Periodic feed fetch failures (cached data is served instead)
//   - Per-post caption fetch failures
//
// This lets the client survive temporary server outages while refusing
// to start against a server that was never there.
package app
