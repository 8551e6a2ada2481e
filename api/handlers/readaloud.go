// ABOUTME: Read-aloud handlers: the device event stream plus start, stop, toggle and ack
// ABOUTME: Devices speak utterances pushed over server-sent events and acknowledge each one

package handlers

import (
	"context"
	"net/http"
	"time"

	"cropguard-api/api/dto/requests"
	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
	"cropguard-api/core/readaloud"
	"cropguard-api/infrastructure/speech/remote"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
)

// DefaultHeartbeat is how often an idle event stream is pinged
const DefaultHeartbeat = 25 * time.Second

// ReadAloudSessions hands out per-device controllers
type ReadAloudSessions interface {
	Get(deviceID string) *readaloud.Controller
	Peek(deviceID string) (*readaloud.Controller, bool)
	Touch(deviceID string) bool
}

// DeviceStreams connects devices to their controllers
type DeviceStreams interface {
	Subscribe(deviceID string) *remote.Subscription
	Unsubscribe(s *remote.Subscription)
	Ack(deviceID string, generation uint64, index int, errMsg string) bool
}

// PingEvent keeps idle streams open through proxies
type PingEvent struct {
	Time time.Time `json:"time"`
}

// ReadAloudHandler handles read-aloud HTTP requests
type ReadAloudHandler struct {
	sessions  ReadAloudSessions
	streams   DeviceStreams
	http      interfaces.HTTPClient
	logger    interfaces.Logger
	heartbeat time.Duration
}

// NewReadAloudHandler creates a read-aloud handler. httpClient fetches pages
// given by URL and may be nil, which disables URL reads.
func NewReadAloudHandler(sessions ReadAloudSessions, streams DeviceStreams, httpClient interfaces.HTTPClient, logger interfaces.Logger) *ReadAloudHandler {
	return &ReadAloudHandler{
		sessions:  sessions,
		streams:   streams,
		http:      httpClient,
		logger:    logger,
		heartbeat: DefaultHeartbeat,
	}
}

// RegisterRoutes registers all read-aloud routes
func (h *ReadAloudHandler) RegisterRoutes(api huma.API) {
	sse.Register(api, huma.Operation{
		OperationID: "readAloudEvents",
		Method:      http.MethodGet,
		Path:        "/devices/{deviceId}/readaloud/events",
		Summary:     "Read-aloud event stream",
		Description: "Utterances to speak, highlight changes and speaking state for a device",
		Tags:        []string{"Read aloud"},
	}, map[string]any{
		remote.EventUtterance:   remote.UtteranceEvent{},
		remote.EventHighlight:   remote.HighlightEvent{},
		remote.EventUnhighlight: remote.UnhighlightEvent{},
		remote.EventCancel:      remote.CancelEvent{},
		remote.EventState:       remote.StateEvent{},
		"ping":                  PingEvent{},
	}, h.Events)

	huma.Register(api, huma.Operation{
		OperationID: "readAloudStart",
		Method:      http.MethodPost,
		Path:        "/devices/{deviceId}/readaloud/start",
		Summary:     "Read a page aloud",
		Description: "Stops any active read, then reads the page element by element with highlighting",
		Tags:        []string{"Read aloud"},
	}, h.Start)

	huma.Register(api, huma.Operation{
		OperationID: "readAloudStop",
		Method:      http.MethodPost,
		Path:        "/devices/{deviceId}/readaloud/stop",
		Summary:     "Stop reading",
		Tags:        []string{"Read aloud"},
	}, h.Stop)

	huma.Register(api, huma.Operation{
		OperationID: "readAloudToggle",
		Method:      http.MethodPost,
		Path:        "/devices/{deviceId}/readaloud/toggle",
		Summary:     "Toggle reading",
		Description: "Stops a read in progress, otherwise reads the given page",
		Tags:        []string{"Read aloud"},
	}, h.Toggle)

	huma.Register(api, huma.Operation{
		OperationID: "readAloudAck",
		Method:      http.MethodPost,
		Path:        "/devices/{deviceId}/readaloud/ack",
		Summary:     "Acknowledge an utterance",
		Description: "Reports that the device finished, or failed, speaking an utterance",
		Tags:        []string{"Read aloud"},
	}, h.Ack)

	huma.Register(api, huma.Operation{
		OperationID: "readAloudState",
		Method:      http.MethodGet,
		Path:        "/devices/{deviceId}/readaloud",
		Summary:     "Read-aloud state",
		Tags:        []string{"Read aloud"},
	}, h.State)
}

// StreamInput identifies the device of an event stream
type StreamInput struct {
	DeviceInput
}

// Resolve rejects malformed device IDs before the stream opens
func (i *StreamInput) Resolve(ctx huma.Context) []error {
	if err := domain.ValidateDeviceID(i.DeviceID); err != nil {
		return []error{&huma.ErrorDetail{
			Location: "path.deviceId",
			Message:  err.Error(),
			Value:    i.DeviceID,
		}}
	}
	return nil
}

// Events handles GET /devices/{deviceId}/readaloud/events
func (h *ReadAloudHandler) Events(ctx context.Context, input *StreamInput, send sse.Sender) {
	sub := h.streams.Subscribe(input.DeviceID)
	defer h.streams.Unsubscribe(sub)

	h.logger.Debug("Read aloud stream opened", map[string]interface{}{
		"deviceId": input.DeviceID,
	})

	// Create the controller now so its state changes reach this stream
	var state remote.StateEvent
	if ctrl := h.sessions.Get(input.DeviceID); ctrl != nil {
		state.Speaking = ctrl.IsSpeaking()
	}

	id := 1
	if err := send(sse.Message{ID: id, Data: state}); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			id++
			if err := send(sse.Message{ID: id, Data: ev}); err != nil {
				return
			}
		case now := <-ticker.C:
			if err := send.Data(PingEvent{Time: now.UTC()}); err != nil {
				return
			}
		}
	}
}

// ReadPageInput carries the page to read
type ReadPageInput struct {
	DeviceInput
	Body requests.ReadPageRequest
}

// ReadAloudStatus reports the outcome of a read-aloud command
type ReadAloudStatus struct {
	Started  bool            `json:"started" doc:"Whether a new read began"`
	Speaking bool            `json:"speaking" doc:"Whether the controller is speaking now"`
	State    readaloud.State `json:"state"`
}

// ReadAloudOutput wraps a read-aloud status
type ReadAloudOutput struct {
	Body ReadAloudStatus
}

func (h *ReadAloudHandler) controller(deviceID string) (*readaloud.Controller, error) {
	if err := domain.ValidateDeviceID(deviceID); err != nil {
		return nil, &errors.ValidationError{Field: "deviceId", Message: err.Error()}
	}
	ctrl := h.sessions.Get(deviceID)
	if ctrl == nil {
		return nil, &errors.UnavailableError{Service: "read aloud", Reason: "shutting down"}
	}
	return ctrl, nil
}

func (h *ReadAloudHandler) selector(req *requests.ReadPageRequest) (readaloud.ContentSelector, error) {
	if req.HTML != "" {
		return readaloud.NewHTMLSelectorFromString(req.HTML)
	}
	return readaloud.URLSelector{HTTP: h.http, URL: req.URL, Article: req.Article}, nil
}

func status(ctrl *readaloud.Controller, started bool) *ReadAloudOutput {
	state := ctrl.State()
	return &ReadAloudOutput{Body: ReadAloudStatus{Started: started, Speaking: state.Speaking, State: state}}
}

// Start handles POST /devices/{deviceId}/readaloud/start. An unavailable
// engine or an empty page is not an error; started is false.
func (h *ReadAloudHandler) Start(ctx context.Context, input *ReadPageInput) (*ReadAloudOutput, error) {
	input.Body.ApplyDefaults()
	if err := input.Body.Validate(); err != nil {
		return nil, toHumaError(err)
	}

	ctrl, err := h.controller(input.DeviceID)
	if err != nil {
		return nil, toHumaError(err)
	}
	sel, err := h.selector(&input.Body)
	if err != nil {
		return nil, toHumaError(err)
	}

	started := ctrl.ReadPage(ctx, sel, input.Body.Lang)
	return status(ctrl, started), nil
}

// Stop handles POST /devices/{deviceId}/readaloud/stop
func (h *ReadAloudHandler) Stop(ctx context.Context, input *DeviceInput) (*ReadAloudOutput, error) {
	if err := domain.ValidateDeviceID(input.DeviceID); err != nil {
		return nil, toHumaError(&errors.ValidationError{Field: "deviceId", Message: err.Error()})
	}
	ctrl, ok := h.sessions.Peek(input.DeviceID)
	if !ok {
		return &ReadAloudOutput{}, nil
	}
	ctrl.Stop()
	return status(ctrl, false), nil
}

// ToggleInput optionally carries the page to read
type ToggleInput struct {
	DeviceInput
	Body *requests.ReadPageRequest `required:"false"`
}

var nothingToRead = readaloud.SelectorFunc(func(context.Context) ([]readaloud.ReadableElement, error) {
	return nil, nil
})

// Toggle handles POST /devices/{deviceId}/readaloud/toggle. A page is only
// needed when the controller is idle.
func (h *ReadAloudHandler) Toggle(ctx context.Context, input *ToggleInput) (*ReadAloudOutput, error) {
	ctrl, err := h.controller(input.DeviceID)
	if err != nil {
		return nil, toHumaError(err)
	}

	var sel readaloud.ContentSelector = nothingToRead
	lang := string(domain.DefaultLanguage)
	if input.Body != nil {
		input.Body.ApplyDefaults()
		lang = input.Body.Lang
		if input.Body.HasPage() {
			if err := input.Body.Validate(); err != nil {
				return nil, toHumaError(err)
			}
			if sel, err = h.selector(input.Body); err != nil {
				return nil, toHumaError(err)
			}
		}
	}

	wasSpeaking := ctrl.IsSpeaking()
	speaking := ctrl.Toggle(ctx, sel, lang)
	return status(ctrl, !wasSpeaking && speaking), nil
}

// AckInput carries an utterance acknowledgement
type AckInput struct {
	DeviceInput
	Body requests.AckRequest
}

// AckOutput reports whether the acknowledgement matched the utterance in flight
type AckOutput struct {
	Body struct {
		Accepted bool `json:"accepted"`
	}
}

// Ack handles POST /devices/{deviceId}/readaloud/ack. Stale acks are
// accepted=false, never an error.
func (h *ReadAloudHandler) Ack(ctx context.Context, input *AckInput) (*AckOutput, error) {
	if err := domain.ValidateDeviceID(input.DeviceID); err != nil {
		return nil, toHumaError(&errors.ValidationError{Field: "deviceId", Message: err.Error()})
	}
	h.sessions.Touch(input.DeviceID)

	out := &AckOutput{}
	out.Body.Accepted = h.streams.Ack(input.DeviceID, input.Body.Generation, input.Body.Index, input.Body.Error)
	if !out.Body.Accepted {
		h.logger.Debug("Stale read aloud ack", map[string]interface{}{
			"deviceId":   input.DeviceID,
			"generation": input.Body.Generation,
			"index":      input.Body.Index,
		})
	}
	return out, nil
}

// State handles GET /devices/{deviceId}/readaloud
func (h *ReadAloudHandler) State(ctx context.Context, input *DeviceInput) (*ReadAloudOutput, error) {
	if err := domain.ValidateDeviceID(input.DeviceID); err != nil {
		return nil, toHumaError(&errors.ValidationError{Field: "deviceId", Message: err.Error()})
	}
	ctrl, ok := h.sessions.Peek(input.DeviceID)
	if !ok {
		return &ReadAloudOutput{}, nil
	}
	return status(ctrl, false), nil
}
