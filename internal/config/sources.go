package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/citizenwallet/feed/internal/common"
)

const (
	KindOpenCollective = "opencollective"
	KindGiveth         = "giveth"
	KindSponsors       = "sponsors"
)

var ErrInvalidSource = errors.New("invalid source")

// Duration reads durations written as "5s" in json
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	err := json.Unmarshal(b, &s)
	if err != nil {
		return err
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(v)

	return nil
}

// SourceConfig describes one auxiliary source of an account
type SourceConfig struct {
	Kind          string   `json:"kind"`
	Tail          bool     `json:"tail"`
	Backfill      bool     `json:"backfill"`
	FirstPageOnly bool     `json:"first_page_only"`
	Interval      Duration `json:"interval"`

	// Decimals overrides the decimals of the community token
	Decimals *int `json:"decimals,omitempty"`

	// opencollective
	Slug string `json:"slug,omitempty"`

	// giveth
	ProjectID int `json:"project_id,omitempty"`

	// sponsors
	File string `json:"file,omitempty"`
	Rate string `json:"rate,omitempty"`
}

// Sources are the auxiliary sources of each account, keyed by checksummed address
type Sources map[string][]SourceConfig

func ParseSources(b []byte) (Sources, error) {
	raw := map[string][]SourceConfig{}
	err := json.Unmarshal(b, &raw)
	if err != nil {
		return nil, err
	}

	sources := Sources{}
	for account, scs := range raw {
		if !common.IsHexAddress(account) {
			return nil, fmt.Errorf("%w: bad account %q", ErrInvalidSource, account)
		}

		for i, sc := range scs {
			err := sc.validate()
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", account, i, err)
			}
		}

		key := common.ChecksumAddress(account)
		sources[key] = append(sources[key], scs...)
	}

	return sources, nil
}

func (sc SourceConfig) validate() error {
	if !sc.Tail && !sc.Backfill {
		return fmt.Errorf("%w: %s is neither tailed nor backfilled", ErrInvalidSource, sc.Kind)
	}

	if sc.Decimals != nil && *sc.Decimals < 0 {
		return fmt.Errorf("%w: negative decimals", ErrInvalidSource)
	}

	switch sc.Kind {
	case KindOpenCollective:
		if sc.Slug == "" {
			return fmt.Errorf("%w: opencollective requires a slug", ErrInvalidSource)
		}
	case KindGiveth:
		if sc.ProjectID == 0 {
			return fmt.Errorf("%w: giveth requires a project_id", ErrInvalidSource)
		}
	case KindSponsors:
		if sc.File == "" {
			return fmt.Errorf("%w: sponsors requires a file", ErrInvalidSource)
		}
		if sc.Tail {
			return fmt.Errorf("%w: sponsors cannot be tailed", ErrInvalidSource)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSource, sc.Kind)
	}

	return nil
}

// DecimalsOr returns the configured decimals, or def when none is set
func (sc SourceConfig) DecimalsOr(def int) int {
	if sc.Decimals == nil {
		return def
	}

	return *sc.Decimals
}
