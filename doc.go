// Package marl is the Composition Root for the marl library.
//
// Marl is a typed document-mapping layer for MongoDB. Application code
// declares a document model once as a plain struct, then performs CRUD
// operations with instances of that model while marl transparently
// converts values in both directions between the application's types
// (structs, enumerations, UUIDs, URLs, timestamps) and the primitives
// the storage engine accepts.
//
// Features:
//
//   - **Recursive Value Conversion**: the outbound/inbound engine walks
//     arbitrarily nested structures and rewrites every value into its
//     storage-safe (or canonical in-memory) form.
//   - **Typed Collections**: a generic `Collection[T]` facade converts
//     filters and payloads on every write and reconstructs T on every
//     read.
//   - **Alias-aware Models**: struct fields serialize by their `bson`
//     tag alias, never their Go name; the `_id` field is the document
//     identity.
//   - **Shared Clients**: driver clients are created lazily, cached
//     process-wide per configuration and shared across collections.
//   - **Pluggable Drivers**: the facade talks to `core.Driver`, so a
//     real deployment and the in-memory test driver are interchangeable.
//
// Usage:
//
//	client, err := marl.Connect(ctx, marl.Config{
//		URI:      "mongodb://localhost:27017",
//		Database: "app",
//	})
//
//	users := marl.CollectionFor[User](client, "users")
//	_, err = users.InsertOne(ctx, User{ID: uuid.New(), Name: "Alice"})
package marl
