package refetch

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// RequestOptions describes everything about a request other than the
// endpoint. The zero value is a GET with no headers, query, or body.
type RequestOptions struct {
	Method string
	Header http.Header
	Query  map[string][]string
	Body   []byte
}

func (o RequestOptions) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return o.Method
}

// writeSortedPairs appends a map of string slices to the key in a
// deterministic order, regardless of map iteration order.
func writeSortedPairs(sb *strings.Builder, pairs map[string][]string) {
	if len(pairs) < 1 {
		sb.WriteString("empty")
		return
	}

	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(strings.Join(pairs[key], "|"))
	}
}

// Key computes the cache key for an (endpoint, options) pair. The same pair
// always produces the same key: headers and query parameters are sorted
// before they are serialized, and the body contributes through a digest
// rather than its raw bytes.
func Key(endpoint string, opts RequestOptions) string {
	var sb strings.Builder
	sb.WriteString(opts.method())
	sb.WriteString("-")
	sb.WriteString(endpoint)
	sb.WriteString("-")
	writeSortedPairs(&sb, opts.Query)
	sb.WriteString("-")
	writeSortedPairs(&sb, opts.Header)
	sb.WriteString("-")
	if len(opts.Body) < 1 {
		sb.WriteString("empty-body")
	} else {
		sb.WriteString(strconv.FormatUint(xxhash.Sum64(opts.Body), 16))
	}
	return sb.String()
}
