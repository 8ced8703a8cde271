package config

import (
	"errors"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	modelMapMu     sync.RWMutex
	modelMapCache  map[string]any
	modelMapLoaded bool
)

// ModelMap returns the process-wide model-map cache, loading it from
// path on first call and memoizing the result. Call ResetModelMapCache
// to force a reload (tests rely on this to exercise different maps
// within one process).
func ModelMap(path string) (map[string]any, error) {
	modelMapMu.RLock()
	if modelMapLoaded {
		m := modelMapCache
		modelMapMu.RUnlock()
		return m, nil
	}
	modelMapMu.RUnlock()

	modelMapMu.Lock()
	defer modelMapMu.Unlock()
	if modelMapLoaded {
		return modelMapCache, nil
	}
	m, err := loadModelMapFile(path)
	if err != nil {
		return nil, err
	}
	modelMapCache = m
	modelMapLoaded = true
	return modelMapCache, nil
}

// ResetModelMapCache invalidates the cached model map so the next call
// to ModelMap reloads from disk.
func ResetModelMapCache() {
	modelMapMu.Lock()
	defer modelMapMu.Unlock()
	modelMapCache = nil
	modelMapLoaded = false
}

// loadModelMapFile reads and parses the YAML model-map file at path. A
// missing file is not an error: it yields an empty map, so a proxy run
// without a model-map configured just passes every model through
// unchanged (see pkg/modelmap).
func loadModelMapFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	doc = unwrapModelMap(doc)

	out := map[string]any{}
	for k, v := range doc {
		switch vv := v.(type) {
		case string:
			if vv != "" {
				out[k] = vv
			}
		case map[string]any:
			if len(vv) > 0 {
				out[k] = vv
			}
		}
	}
	return out, nil
}

// unwrapModelMap tolerates three YAML shapes: a bare mapping of
// pattern -> target, a document with a top-level model_map key, or one
// nested under an api_transformer_config root key.
func unwrapModelMap(doc map[string]any) map[string]any {
	if doc == nil {
		return map[string]any{}
	}
	if inner, ok := doc["model_map"].(map[string]any); ok {
		return inner
	}
	if cfg, ok := doc["api_transformer_config"].(map[string]any); ok {
		if inner, ok := cfg["model_map"].(map[string]any); ok {
			return inner
		}
	}
	return doc
}
