package matcher

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// IDSet is a set of catalog item ids.
type IDSet map[uint]struct{}

// NewIDSet builds a set, ignoring zero ids.
func NewIDSet(ids ...uint) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s IDSet) Add(id uint) {
	if id == 0 {
		return
	}
	s[id] = struct{}{}
}

func (s IDSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []uint {
	out := make([]uint, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var idSplitter = regexp.MustCompile(`[,;\s]+`)

// ParseIDs reads a comma separated id list such as "3, 7,12".
// Tokens that are not positive integers are returned in rejected.
func ParseIDs(raw string) (ids IDSet, rejected []string) {
	ids = NewIDSet()
	for _, tok := range idSplitter.Split(strings.TrimSpace(raw), -1) {
		if tok == "" {
			continue
		}
		n, err := strconv.ParseUint(tok, 10, 64)
		if err != nil || n == 0 || uint64(uint(n)) != n {
			rejected = append(rejected, tok)
			continue
		}
		ids.Add(uint(n))
	}
	return ids, rejected
}
