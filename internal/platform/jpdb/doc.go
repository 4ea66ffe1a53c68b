// Package jpdb implements enrich.Enricher by reading the public jpdb.io
// pages: the kanji page for a keyword and mnemonic, and the search page for
// a vocabulary description.
package jpdb
