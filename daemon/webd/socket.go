package webd

import (
	"encoding/json"
	"log"
	"log/slog"

	"github.com/olahol/melody"

	"github.com/rotblauer/dotd/types/activity"
)

type websocketAction string

var websocketActionPopulate websocketAction = "populate"

type broadcast struct {
	Action  websocketAction       `json:"action"`
	Records []*activity.RawRecord `json:"records"`
}

// initMelody sets up the websocket handler.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	// Fresh connections get the most recent pushes replayed, so a
	// client has dots to animate before anyone pushes again.
	s.melodyInstance.HandleConnect(func(sess *melody.Session) {
		log.Println("[websocket] connected", sess.Request.RemoteAddr)
		for _, recs := range s.lastPushes.Get() {
			bc := broadcast{
				Action:  websocketActionPopulate,
				Records: recs,
			}
			b, _ := json.Marshal(bc)
			_ = sess.Write(b)
		}
	})

	// Right now don't care about incoming messages from clients. Log and drop.
	s.melodyInstance.HandleMessage(loggingHandler)

	s.melodyInstance.HandleDisconnect(func(sess *melody.Session) {
		log.Println("[websocket] disconnected", sess.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(sess *melody.Session, e error) {
		log.Println("[websocket] error", e, sess.Request.RemoteAddr)
	})

	// Broadcast record push events - as received - to all connected
	// clients. This is the data the pusher sent us, not the validated,
	// deduped, stored data.
	pushes := make(chan []*activity.RawRecord)
	pushSub := s.feedPopulated.Subscribe(pushes)
	go func() {
		for {
			select {
			case recs := <-pushes:
				bc := broadcast{
					Action:  websocketActionPopulate,
					Records: recs,
				}
				b, err := json.Marshal(bc)
				if err != nil {
					slog.Error("Failed to marshal populate event", "error", err)
					continue
				}
				if err := s.melodyInstance.Broadcast(b); err != nil {
					slog.Warn("Failed to broadcast populate event", "error", err)
				}
			case err := <-pushSub.Err():
				slog.Error("Failed to subscribe to populate feed", "error", err)
				return
			}
		}
	}()
}

// on request
func loggingHandler(sess *melody.Session, msg []byte) {
	log.Println("[websocket] message", string(msg))
}
