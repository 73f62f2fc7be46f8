package index

import "github.com/rohmanhakim/listing-enricher/internal/events"

type selected[E events.EventMeta] struct {
	event   E
	arrival int
}

// latestByListing groups events by listing and keeps the latest one per
// listing. arrival is the position in the input collection.
func latestByListing[E events.EventMeta](collection []E) map[string]selected[E] {
	latest := make(map[string]selected[E])
	for arrival, event := range collection {
		listingID := event.EventMeta().ListingID
		current, ok := latest[listingID]
		if !ok || isLater(event.EventMeta(), arrival, current.event.EventMeta(), current.arrival) {
			latest[listingID] = selected[E]{event: event, arrival: arrival}
		}
	}
	return latest
}

// isLater orders by block number, then transaction index when both events
// report one, then arrival position.
func isLater(a events.Meta, aArrival int, b events.Meta, bArrival int) bool {
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber > b.BlockNumber
	}
	if a.TransactionIndex != nil && b.TransactionIndex != nil && *a.TransactionIndex != *b.TransactionIndex {
		return *a.TransactionIndex > *b.TransactionIndex
	}
	return aArrival > bArrival
}

// lessListingID sorts decimal ids numerically and puts them before
// non-decimal ids, which sort lexically.
func lessListingID(a, b string) bool {
	aNumeric, bNumeric := isDecimal(a), isDecimal(b)
	switch {
	case aNumeric && bNumeric:
		aTrimmed, bTrimmed := trimLeadingZeros(a), trimLeadingZeros(b)
		if len(aTrimmed) != len(bTrimmed) {
			return len(aTrimmed) < len(bTrimmed)
		}
		if aTrimmed != bTrimmed {
			return aTrimmed < bTrimmed
		}
		return a < b
	case aNumeric != bNumeric:
		return aNumeric
	default:
		return a < b
	}
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func trimLeadingZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
