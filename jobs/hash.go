// Package jobs implements the common External Job Coordinator contract
// (spec.md §4.H) shared by the transcode, image-convert, and transcription
// coordinators: config-hash dedup, the create-or-reuse decision table, and
// the poll loop. Grounded on the teacher's pipeline.Coordinator, which
// tracked one in-flight VOD transcode per stream the same way this tracks
// one in-flight remote job per (user, project, asset, config hash).
package jobs

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// ConfigHash computes the 12-character dedup key for a normalised config,
// per spec.md §4.H step 1: md5(canonicalJson(config))[0:12]. Canonicalisation
// sorts map keys recursively so semantically identical configs hash
// identically regardless of field insertion order.
func ConfigHash(cfg map[string]any) string {
	canon := canonicalize(cfg)
	b, _ := json.Marshal(canon)
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])[:12]
}

func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]keyVal, 0, len(t))
		for _, k := range keys {
			ordered = append(ordered, keyVal{k, canonicalize(t[k])})
		}
		return ordered
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return t
	}
}

type keyVal struct {
	K string `json:"k"`
	V any    `json:"v"`
}
