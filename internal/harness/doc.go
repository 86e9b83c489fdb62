// Package harness runs objgraph scenarios against a fresh database.
//
// A scenario names a CUE data map, seeds the database, runs a list of
// steps through an access.Domain and checks the outcome. Every step is
// recorded in a trace; the trace is what golden files snapshot.
//
// # Scenario Format
//
//	name: paintings_by_artist
//	description: "Paintings are matched through the artist relationship"
//	schema: ../schema/gallery.cue
//	setup:
//	  - sql: "INSERT INTO artist (id, name) VALUES (1, 'Monet')"
//	  - insert:
//	      entity: Artist
//	      values: { name: Manet }
//	steps:
//	  - query:
//	      entity: Painting
//	      qualifier: { op: "=", path: "artist.name", value: Monet }
//	    expect:
//	      sql: "SELECT ..."
//	      count: 2
//	      rows:
//	        - { title: "Water Lilies" }
//	assertions:
//	  - type: row_count
//	    table: painting
//	    count: 3
//	  - type: final_state
//	    table: artist
//	    where: { id: 1 }
//	    expect: { name: Monet }
//
// The schema path is relative to the scenario file. Without a schema the
// gallery fixture of internal/testutil is used.
//
// # Assertion Types
//
//   - final_state: exactly one row of table matches where and holds expect
//   - row_count: table (optionally filtered by where) has count rows
//
// # Determinism
//
// Each run uses an in-memory SQLite database. Generated keys start at 1
// for every table, so traces are identical across runs.
package harness
