package params

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/mitchellh/go-homedir"
)

func init() {
	metrics.Enabled = true
}

const (
	RecordsDBName = "records.db"
	RecordsBucket = "records"
)

var DefaultDatadirRoot = func() string {
	home, err := homedir.Dir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".dotd")
}()

var DefaultBatchSize = 10_000
var DefaultBufferSize = 100_000

// DedupeCacheSize bounds the LRU used to drop duplicate record pushes.
var DedupeCacheSize = 10_000

// RecordReadCacheSize bounds the read-through cache in front of the record store.
var RecordReadCacheSize = 4_096

var (
	// CollectionTTL is how long an activity lives in the in-memory collection
	// without being touched before it is evicted.
	CollectionTTL = 7 * 24 * time.Hour

	// LastPushReplayN is how many of the most recent pushes a freshly
	// connected websocket client gets replayed.
	LastPushReplayN = 10
)

// INFLUXDB_URL et al. configure the optional frame-stat export.
// Export is disabled when INFLUXDB_URL is empty.
var (
	INFLUXDB_URL    = os.Getenv("INFLUXDB_URL")
	INFLUXDB_TOKEN  = os.Getenv("INFLUXDB_TOKEN")
	INFLUXDB_ORG    = os.Getenv("INFLUXDB_ORG")
	INFLUXDB_BUCKET = os.Getenv("INFLUXDB_BUCKET")
)
