// Package netdb holds network database records delivered to an inbound
// tunnel endpoint inside garlic cloves.
//
// A DatabaseStore message carries either a RouterInfo (gzip-compressed,
// length-prefixed) or one of the LeaseSet variants. RecordFromStore turns the
// message into a Record, rejecting malformed framing before anything is
// stored. MemoryStore is an in-memory sink that additionally parses the
// record and checks it against the store key.
//
// Persistence and flooding are handled elsewhere.
package netdb
