// Package gemini implements enrich.Enricher on top of Google's Gemini API.
// It is the fallback used when the dictionary scraper has nothing for a key:
// the model is asked for a short keyword and mnemonic for a character, or a
// one-line gloss for a vocabulary expression, as JSON.
//
// Transient API failures are retried with exponential backoff and jitter.
// Safety blocks and unparseable answers are permanent.
package gemini
