// Package core holds the domain contracts shared by the conversion
// engine, the typed collection facade and the storage adapters.
package core

// BinarySubtypeUUID is the storage engine's binary subtype for
// RFC 4122 UUIDs encoded as 16 big-endian bytes.
const BinarySubtypeUUID byte = 0x04

// IdentityKey is the reserved document key the engine uses as the
// primary identifier of a document.
const IdentityKey = "_id"
