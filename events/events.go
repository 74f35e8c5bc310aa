package events

import (
	"github.com/ethereum/go-ethereum/event"

	"github.com/rotblauer/dotd/types/activity"
)

// NewActivityFeed is emitted for every record that is successfully
// admitted to the collection (decoded, deduped, and persisted).
var NewActivityFeed = event.FeedOf[*activity.Activity]{}

// HTTPPopulateFeed is a feed of raw records as they are pushed to the
// server. The records included as the payload will have been decoded,
// but not validated, deduped, nor necessarily persisted. A reminder,
// too, that this event is emitted only in the context of an HTTP
// request; dotd also populates from stdin.
var HTTPPopulateFeed = event.FeedOf[[]*activity.RawRecord]{}
