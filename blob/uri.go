package blob

import (
	"strings"

	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
)

// ParseGCSURI splits a gs://bucket/object URI into its bucket and object
// components, per spec.md §6: strip the gs:// prefix and split once on the
// first remaining slash. A URI missing either part is a validation error.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	const prefix = "gs://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", xerrors.NewValidation("not a gs:// URI: "+uri, nil)
	}
	rest := strings.TrimPrefix(uri, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", xerrors.NewValidation("malformed gs:// URI: "+uri, nil)
	}
	return parts[0], parts[1], nil
}

// FormatGCSURI builds the canonical gs:// form of a bucket/object pair.
func FormatGCSURI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}
