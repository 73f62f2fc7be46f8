package identifier

import (
	"regexp"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/rohmanhakim/listing-enricher/pkg/urlutil"
)

/*
Shape rules

- v0: "Qm" followed by exactly 44 base58btc characters (no 0, O, I, l)
- v1: "baf" followed by lowercase base32 characters (a-z, 2-7), at least 7 characters in total
- http(s) URLs are pre-resolved locations, not identifiers
- any other "scheme://" prefix (ipfs://, ...) is dropped before matching

Shape matching is authoritative for resolution. Decode goes further and
parses the multihash, but a shape-valid string that fails to decode is
still considered well-formed.
*/

var (
	v0Pattern = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`)
	v1Pattern = regexp.MustCompile(`^baf[a-z2-7]{4,}$`)
)

// Validate classifies s. It never fails.
func Validate(s string) Classification {
	if urlutil.IsAbsoluteHTTP(s) {
		return Classification{
			WellFormed:  false,
			Version:     VersionUnknown,
			AbsoluteURL: true,
			Normalized:  s,
		}
	}

	normalized := urlutil.StripScheme(s)
	switch {
	case v0Pattern.MatchString(normalized):
		return Classification{WellFormed: true, Version: VersionV0, Normalized: normalized}
	case v1Pattern.MatchString(normalized):
		return Classification{WellFormed: true, Version: VersionV1, Normalized: normalized}
	default:
		return Classification{WellFormed: false, Version: VersionUnknown, Normalized: normalized}
	}
}

// IsWellFormed is shorthand for Validate(s).WellFormed.
func IsWellFormed(s string) bool {
	return Validate(s).WellFormed
}

// Decode parses a well-formed identifier and reports its codec and hash function.
func Decode(s string) (Details, error) {
	classification := Validate(s)
	if !classification.WellFormed {
		return Details{}, &DecodeError{
			Message: s,
			Cause:   ErrCauseIllFormed,
		}
	}

	decoded, err := cid.Decode(classification.Normalized)
	if err != nil {
		return Details{}, &DecodeError{
			Message: err.Error(),
			Cause:   ErrCauseCidDecode,
		}
	}

	mh, err := multihash.Decode(decoded.Hash())
	if err != nil {
		return Details{}, &DecodeError{
			Message: err.Error(),
			Cause:   ErrCauseHashDecode,
		}
	}

	return Details{
		Version:      decoded.Version(),
		Codec:        decoded.Type(),
		HashFunction: mh.Name,
		DigestLength: mh.Length,
	}, nil
}
