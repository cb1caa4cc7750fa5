package sync // import "github.com/johnyfernandes/shlf-sync/sync"

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/johnyfernandes/shlf-sync/api/auth"
	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/worker"
	"github.com/pkg/errors"
)

// HTTPPeer delivers messages to the paired daemon. It implements
// worker.Sender; all delivery failures surface as errors, never retries.
type HTTPPeer struct {
	baseURL string
	device  model.DeviceTag
	secret  []byte
	client  *http.Client
}

func NewHTTPPeer(baseURL string, device model.DeviceTag) *HTTPPeer {
	return &HTTPPeer{
		baseURL: baseURL,
		device:  device,
		secret:  []byte(config.Opts.PeerSecret),
		client: &http.Client{
			Timeout: time.Duration(config.Opts.PeerTimeout) * time.Second,
		},
	}
}

// Send posts one framed message to the peer's message endpoint.
func (p *HTTPPeer) Send(envelope *model.Envelope) error {
	return p.post(http.MethodPost, p.baseURL+"/sync/v1/message", envelope)
}

// UpdateContext replaces the peer's library context. Latest-wins on the
// receiving side, so a dropped update is healed by the next one.
func (p *HTTPPeer) UpdateContext(broadcast *model.LibraryBroadcast) error {
	return p.post(http.MethodPut, p.baseURL+"/sync/v1/context", broadcast)
}

// Reachable probes the peer's healthcheck endpoint.
func (p *HTTPPeer) Reachable() bool {
	req, err := http.NewRequest(http.MethodGet, p.baseURL+"/healthcheck", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *HTTPPeer) post(method, url string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to encode peer request")
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "failed to build peer request")
	}

	token, err := auth.GeneratePeerToken(p.device, p.secret)
	if err != nil {
		return errors.Wrap(err, "failed to sign peer token")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		// Connection errors are the normal case when the peer app is
		// backgrounded or the device is out of range.
		return errors.Wrap(worker.ErrPeerUnreachable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.New(fmt.Sprintf("peer returned status %d", resp.StatusCode))
	}
	return nil
}
