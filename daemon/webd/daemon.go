package webd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/olahol/melody"

	"github.com/rotblauer/dotd/common"
	"github.com/rotblauer/dotd/layer"
	"github.com/rotblauer/dotd/params"
	"github.com/rotblauer/dotd/state"
	"github.com/rotblauer/dotd/types/activity"
)

// WebDaemon serves the activity collection over HTTP and websocket.
// Records get POSTed to /populate, persisted in the record store, and
// admitted to the in-memory collection; connected websocket clients get
// pushes broadcast as they arrive.
type WebDaemon struct {
	Config *params.WebDaemonConfig
	Coll   *layer.Collection
	Store  *state.RecordStore

	started        time.Time
	logger         *slog.Logger
	melodyInstance *melody.Melody
	feedPopulated  event.FeedOf[[]*activity.RawRecord]
	lastPushes     *common.RingBuffer[[]*activity.RawRecord]
}

func NewWebDaemon(config *params.WebDaemonConfig) (*WebDaemon, error) {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	store, err := state.NewRecordStore(config.DataDir)
	if err != nil {
		return nil, err
	}
	return &WebDaemon{
		Config: config,
		Coll:   layer.NewCollectionWithConfig(config.Render),
		Store:  store,

		started:       time.Now(),
		logger:        slog.With("d", "web"),
		feedPopulated: event.FeedOf[[]*activity.RawRecord]{},
		lastPushes:    common.NewRingBuffer[[]*activity.RawRecord](params.LastPushReplayN),
	}, nil
}

// Restore rebuilds the in-memory collection from the record store.
func (s *WebDaemon) Restore(ctx context.Context) error {
	recs, errs := s.Store.Scan(ctx)
	n := 0
	for rec := range recs {
		if _, err := s.Coll.Add(rec); err != nil {
			if errors.Is(err, layer.ErrDuplicateRecord) {
				continue
			}
			s.logger.Warn("Failed to restore record", "id", rec.ID, "error", err)
			continue
		}
		n++
	}
	if err := <-errs; err != nil {
		return err
	}
	s.logger.Info("Restored collection", "activities", n)
	return nil
}

// Run restores the collection, then starts the HTTP server and waits
// for it, returning any server error.
func (s *WebDaemon) Run() error {
	if err := s.Restore(context.Background()); err != nil {
		return err
	}

	router := s.NewRouter()
	listener, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return err
	}
	s.logger.Info("Starting web daemon", "listen", listener.Addr())
	return http.Serve(listener, router)
}

func (s *WebDaemon) NewRouter() *mux.Router {
	// Handle websocket.
	s.initMelody()

	router := mux.NewRouter().StrictSlash(false)
	router.Use(loggingMiddleware)

	router.Path("/sodot").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	apiRoutes := router.NewRoute().Subrouter()

	// All API routes use permissive CORS settings.
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))
	apiJSONRoutes.Use(compressionMiddleware)

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/activities").HandlerFunc(s.handleListActivities).Methods(http.MethodGet)
	apiJSONRoutes.Path("/activities/{id:[0-9]+}").HandlerFunc(s.handleGetActivity).Methods(http.MethodGet)

	populateRoutes := apiJSONRoutes.NewRoute().Subrouter()
	populateRoutes.Path("/populate/").HandlerFunc(s.handlePopulate).Methods(http.MethodPost)
	populateRoutes.Path("/populate").HandlerFunc(s.handlePopulate).Methods(http.MethodPost)

	return router
}

// NotifyPopulated forwards records admitted elsewhere (eg. stdin
// populate) to the websocket broadcaster.
func (s *WebDaemon) NotifyPopulated(recs []*activity.RawRecord) {
	s.lastPushes.Add(recs)
	s.feedPopulated.Send(recs)
}
