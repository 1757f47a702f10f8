package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ark-network/raffle/internal/core/application"
	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/ark-network/raffle/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type handler struct {
	svc application.Service

	eventsListenerHandler *broker[[]byte]
	upgrader              websocket.Upgrader
}

// NewHandler returns the REST handler of the raffle. It starts forwarding
// raffle events to websocket listeners and metrics right away.
func NewHandler(service application.Service) (http.Handler, error) {
	h := &handler{
		svc:                   service,
		eventsListenerHandler: newBroker[[]byte](),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	events, err := service.GetEventsChannel(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to raffle events: %s", err)
	}
	go h.listenToEvents(events)

	router := mux.NewRouter()
	router.Use(metrics.InstrumentHandler)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/v1/raffle", h.getInfo).Methods(http.MethodGet)
	raffle := router.PathPrefix("/v1/raffle").Subrouter()
	raffle.HandleFunc("/players/{index}", h.getPlayer).Methods(http.MethodGet)
	raffle.HandleFunc("/enter", h.enter).Methods(http.MethodPost)
	raffle.HandleFunc("/upkeep", h.checkUpkeep).Methods(http.MethodGet)
	raffle.HandleFunc("/upkeep", h.performUpkeep).Methods(http.MethodPost)
	raffle.HandleFunc("/settlement/retry", h.retrySettlement).Methods(http.MethodPost)
	raffle.HandleFunc("/requests/{id}", h.getRequest).Methods(http.MethodGet)
	raffle.HandleFunc("/winners", h.getWinners).Methods(http.MethodGet)
	raffle.HandleFunc("/events", h.getEventStream).Methods(http.MethodGet)

	router.HandleFunc(
		"/v1/oracle/requests/{id}/fulfill", h.fulfillRequest,
	).Methods(http.MethodPost)

	router.HandleFunc("/v1/wallet/deposit", h.deposit).Methods(http.MethodPost)
	router.HandleFunc("/v1/wallet/balance/{account}", h.getBalance).Methods(http.MethodGet)

	return router, nil
}

func (h *handler) getInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.GetRaffleInfo(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRaffleInfo(info))
}

func (h *handler) getPlayer(w http.ResponseWriter, r *http.Request) {
	index, err := parseUintVar(r, "index")
	if err != nil {
		writeError(w, err)
		return
	}

	player, err := h.svc.GetParticipant(r.Context(), int(index))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"index": index, "player": player})
}

func (h *handler) enter(w http.ResponseWriter, r *http.Request) {
	var req enterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Participant) <= 0 {
		writeError(w, fmt.Errorf("%w: missing participant", errInvalidRequest))
		return
	}

	count, err := h.svc.Enter(r.Context(), req.Participant, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"numberOfPlayers": count})
}

func (h *handler) checkUpkeep(w http.ResponseWriter, r *http.Request) {
	needed, status, err := h.svc.CheckUpkeep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUpkeepStatus(needed, status))
}

func (h *handler) performUpkeep(w http.ResponseWriter, r *http.Request) {
	requestId, err := h.svc.PerformUpkeep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"requestId": requestId})
}

func (h *handler) retrySettlement(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RetrySettlement(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.getInfo(w, r)
}

func (h *handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintVar(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	request, err := h.svc.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if request == nil {
		writeError(w, fmt.Errorf("%w: %d", domain.ErrUnknownRequest, id))
		return
	}
	writeJSON(w, http.StatusOK, toRandomnessRequest(request))
}

func (h *handler) getWinners(w http.ResponseWriter, r *http.Request) {
	winners, err := h.svc.GetWinners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"winners": toWinners(winners)})
}

func (h *handler) fulfillRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintVar(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req fulfillRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := h.svc.FulfillRequest(r.Context(), id, req.RandomWords); err != nil {
		writeError(w, err)
		return
	}
	h.getInfo(w, r)
}

func (h *handler) deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Account) <= 0 || req.Amount == 0 {
		writeError(w, fmt.Errorf("%w: missing account or amount", errInvalidRequest))
		return
	}

	if err := h.svc.Deposit(r.Context(), req.Account, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	h.writeBalance(w, r, req.Account)
}

func (h *handler) getBalance(w http.ResponseWriter, r *http.Request) {
	h.writeBalance(w, r, mux.Vars(r)["account"])
}

func (h *handler) writeBalance(w http.ResponseWriter, r *http.Request, account string) {
	balance, err := h.svc.GetBalance(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": account, "balance": balance})
}

// getEventStream upgrades the connection to a websocket and streams every
// raffle event until the client goes away.
func (h *handler) getEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("failed to upgrade event stream connection")
		return
	}
	defer conn.Close()

	listener := &listener[[]byte]{
		id: uuid.NewString(),
		ch: make(chan []byte, listenerBufferSize),
	}
	h.eventsListenerHandler.pushListener(listener)
	defer h.eventsListenerHandler.removeListener(listener.id)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case msg := <-listener.ch:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debugf("event stream %s closed", listener.id)
				return
			}
		}
	}
}

// listenToEvents forwards raffle events to metrics and to the set of
// websocket listeners.
func (h *handler) listenToEvents(events <-chan domain.RaffleEvent) {
	for event := range events {
		metrics.ObserveEvent(event)

		if h.eventsListenerHandler.count() <= 0 {
			continue
		}
		msg, err := domain.EncodeEvent(event)
		if err != nil {
			log.WithError(err).Warn("failed to encode raffle event")
			continue
		}
		h.eventsListenerHandler.publish(msg)
	}
}
