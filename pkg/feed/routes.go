package feed

import (
	"time"

	"github.com/citizenwallet/feed/internal/common"
)

const (
	DefaultAuxInterval = 5 * time.Second
)

// Descriptor binds an auxiliary source to an account
type Descriptor struct {
	Source Source

	// Tail polls the source on Interval while listening
	Tail     bool
	Interval time.Duration

	// Backfill fetches the source alongside every backfill page
	Backfill bool

	// FirstPageOnly restricts a backfill source to the first page of a run
	FirstPageOnly bool
}

// Routes maps an account to the ordered auxiliary sources that supplement the primary indexer
type Routes map[string][]Descriptor

// NewRoutes builds routes keyed by checksummed address so lookups ignore casing
func NewRoutes(m map[string][]Descriptor) Routes {
	r := Routes{}
	for acc, ds := range m {
		key := common.ChecksumAddress(acc)
		r[key] = append(r[key], ds...)
	}
	return r
}

// For returns the descriptors configured for account, nil if it has none
func (r Routes) For(account string) []Descriptor {
	if account == "" || r == nil {
		return nil
	}

	return r[common.ChecksumAddress(account)]
}

func (r Routes) tail(account string) []Descriptor {
	return common.Filter(r.For(account), func(d Descriptor) bool {
		return d.Tail
	})
}

func (r Routes) backfill(account string, offset int) []Descriptor {
	return common.Filter(r.For(account), func(d Descriptor) bool {
		if !d.Backfill {
			return false
		}

		return !d.FirstPageOnly || offset == 0
	})
}
