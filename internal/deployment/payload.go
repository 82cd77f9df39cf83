package deployment

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	fieldRestartSplunkd   = "restartSplunkd"
	fieldContinueMatching = "continueMatching"
	fieldName             = "name"
	whitelistPrefix       = "whitelist."
)

// WhitelistPayload builds the form body that appends clients to a server
// class whitelist. Entries are keyed whitelist.<start>, whitelist.<start+1>, ...
// so keys below start are never written. Clients are not deduplicated.
//
// Indices are purely positional: if start does not match the highest index
// actually in use on the server, existing entries may be overwritten.
func WhitelistPayload(start int, clients []string) url.Values {
	if start < 0 {
		start = 0
	}
	body := url.Values{}
	body.Set(fieldRestartSplunkd, "True")
	body.Set(fieldContinueMatching, "True")
	for i, client := range clients {
		body.Set(whitelistKey(start+i), client)
	}
	return body
}

func whitelistKey(index int) string {
	return whitelistPrefix + strconv.Itoa(index)
}

// WhitelistEntries extracts the whitelist.N entries of a payload, keyed by index.
func WhitelistEntries(body url.Values) map[int]string {
	entries := make(map[int]string)
	for key := range body {
		if !strings.HasPrefix(key, whitelistPrefix) {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(key, whitelistPrefix))
		if err != nil {
			continue
		}
		entries[idx] = body.Get(key)
	}
	return entries
}

// SortedIndices returns the keys of entries in ascending order.
func SortedIndices(entries map[int]string) []int {
	indices := make([]int, 0, len(entries))
	for idx := range entries {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}
