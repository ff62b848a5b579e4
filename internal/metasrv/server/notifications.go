package server

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/streamhouse/streamhouse/internal/common/httpx"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalogmanager"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// lagCloseCode tells the client it fell behind the delta stream and must
// refetch /snapshot before resubscribing from the snapshot's version.
const lagCloseCode = 4000

// streamNotifications upgrades the connection to a websocket and streams
// catalog deltas in version order, starting after ?from=. Each frame is one
// delta; a subscriber that cannot keep up is closed with lagCloseCode.
func (s *MetaServer) streamNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var from uint64
	if raw := r.URL.Query().Get("from"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httpx.SendError(w, catalogmanager.ErrInvalidArgument.Msg("invalid from version: "+raw))
			return
		}
		from = v
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := s.manager.Broadcaster().Subscribe(ctx, from)
	defer sub.Close()
	log.Ctx(ctx).Info().Str("subscriber", sub.ID).Uint64("from", from).Msg("notification stream opened")

	// Drain client frames so close handshakes and pings are processed; the
	// stream is one-way otherwise.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	for delta := range sub.C {
		payload, merr := json.Marshal(delta)
		if merr != nil {
			log.Ctx(ctx).Error().Err(merr).Uint64("version", delta.Version).Msg("failed to encode delta")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("subscriber", sub.ID).Msg("notification stream write failed")
			return
		}
	}

	if sub.Lagged() {
		log.Ctx(ctx).Warn().Str("subscriber", sub.ID).Msg("subscriber lagged, closing for resync")
		closeMsg := websocket.FormatCloseMessage(lagCloseCode, "lagged, resync from snapshot")
		_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
	}
}
