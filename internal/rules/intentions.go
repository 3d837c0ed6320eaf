package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// IntentionMapping is one {street}/{action_label}.json file's decoded
// contents, per spec.md §4.10.
type IntentionMapping struct {
	// DetailedMappings[strength][size_bucket] -> intention, the
	// fine-grained, preferred lookup.
	DetailedMappings map[string]map[string]string `json:"detailed_mappings"`
	// StrengthMappings[strength][size_group] -> intention, the coarse
	// fallback lookup (size_group is one of small/medium/large).
	StrengthMappings map[string]map[string]string `json:"strength_mappings"`
}

// IntentionTree loads and caches every mapping file under a root
// directory, read once at pipeline start per spec.md §5 ("file system is
// source of truth, no in-memory invalidation needed between runs").
type IntentionTree struct {
	root     string
	mappings map[string]*IntentionMapping // "{street}/{action_label}" -> mapping
}

// LoadIntentionTree walks root and parses every *.json file it finds,
// keyed by its street/label path relative to root.
func LoadIntentionTree(root string) (*IntentionTree, error) {
	tree := &IntentionTree{root: root, mappings: make(map[string]*IntentionMapping)}
	if root == "" {
		return tree, nil
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return tree, nil
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := rel[:len(rel)-len(filepath.Ext(rel))]

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("rules: read intention mapping %s: %w", path, err)
		}
		var m IntentionMapping
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("rules: decode intention mapping %s: %w", path, err)
		}
		tree.mappings[filepath.ToSlash(key)] = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// Lookup returns the mapping for {street}/{actionLabel}, falling back to
// {street}/raise if no exact file exists, per spec.md §4.10.
func (t *IntentionTree) Lookup(street, actionLabel string) (*IntentionMapping, bool) {
	if m, ok := t.mappings[street+"/"+actionLabel]; ok {
		return m, true
	}
	if m, ok := t.mappings[street+"/raise"]; ok {
		return m, true
	}
	return nil, false
}

// SizeGroup coarsens one of Stage 3's seven size buckets into the three
// groups strength_mappings indexes by.
func SizeGroup(bucket string) string {
	switch bucket {
	case "tiny", "small":
		return "small"
	case "medium":
		return "medium"
	case "big", "pot", "over", "huge":
		return "large"
	default:
		return "medium"
	}
}

// StrengthBucket classifies a 1..100 j_score into low/medium/high.
func StrengthBucket(jScore float64) string {
	switch {
	case jScore <= 33:
		return "low"
	case jScore <= 66:
		return "medium"
	default:
		return "high"
	}
}
