// Package cache provides sentence translation caching implementations.
//
// Keys are built by subflow.CacheKey from the sentence hash, the
// language pair, the model and the style, so one cache can serve runs with
// different settings.
package cache

import "github.com/ZaguanLabs/subflow"

// TranslationCache is an alias to the main package interface.
type TranslationCache = subflow.TranslationCache

// Enumerable is implemented by caches whose contents can be listed for export.
type Enumerable interface {
	Entries() (map[string]string, error)
}
