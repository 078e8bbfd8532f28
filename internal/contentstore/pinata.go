package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultPinataAPI     = "https://api.pinata.cloud"
	defaultPinataGateway = "https://gateway.pinata.cloud"
	maxPayloadBytes      = 1 << 20
)

// PinataConfig configures the Pinata pinning client.
type PinataConfig struct {
	JWT        string
	APIURL     string
	GatewayURL string
	Timeout    time.Duration
}

// PinataStore pins JSON through the Pinata API and reads it back through an
// IPFS gateway.
type PinataStore struct {
	jwt     string
	apiURL  string
	gateway string
	client  *http.Client
	logger  *slog.Logger
}

// NewPinataStore creates a Pinata client.
func NewPinataStore(cfg PinataConfig, logger *slog.Logger) *PinataStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PinataStore{
		jwt:     cfg.JWT,
		apiURL:  baseURL(cfg.APIURL, defaultPinataAPI),
		gateway: baseURL(cfg.GatewayURL, defaultPinataGateway),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type pinataMetadata struct {
	Name      string            `json:"name"`
	Keyvalues map[string]string `json:"keyvalues,omitempty"`
}

type pinJSONRequest struct {
	Content  any            `json:"pinataContent"`
	Metadata pinataMetadata `json:"pinataMetadata"`
}

type pinJSONResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type pinListResponse struct {
	Count int `json:"count"`
	Rows  []struct {
		IpfsPinHash string         `json:"ipfs_pin_hash"`
		DatePinned  time.Time      `json:"date_pinned"`
		Metadata    pinataMetadata `json:"metadata"`
	} `json:"rows"`
}

type keyvalueFilter struct {
	Value string `json:"value"`
	Op    string `json:"op"`
}

// Put pins v as JSON under a name derived from opts or the payload itself.
func (s *PinataStore) Put(ctx context.Context, v any, opts PutOptions) (Object, error) {
	name := labelFor(v, opts)
	body, err := json.Marshal(pinJSONRequest{
		Content:  v,
		Metadata: pinataMetadata{Name: name, Keyvalues: opts.Keyvalues},
	})
	if err != nil {
		return Object{}, fmt.Errorf("%w: encode payload: %v", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/pinning/pinJSONToIPFS", bytes.NewReader(body))
	if err != nil {
		return Object{}, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return Object{}, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Object{}, fmt.Errorf("%w: status %d: %s", ErrUpload, resp.StatusCode, readSnippet(resp.Body))
	}

	var pinned pinJSONResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return Object{}, fmt.Errorf("%w: decode response: %v", ErrUpload, err)
	}
	if !IsCID(pinned.IpfsHash) {
		return Object{}, fmt.Errorf("%w: service returned malformed cid %q", ErrUpload, pinned.IpfsHash)
	}

	return Object{CID: pinned.IpfsHash, URL: s.gatewayURL(pinned.IpfsHash), Name: name}, nil
}

// Get fetches the payload from the gateway.
func (s *PinataStore) Get(ctx context.Context, cid string, dst any) error {
	if !IsCID(cid) {
		return fmt.Errorf("%w: %q", ErrInvalidReference, cid)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.gatewayURL(cid), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadBytes)).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrFetch, err)
	}
	return nil
}

// Unpin removes the pin. Failures are logged and reported as false.
func (s *PinataStore) Unpin(ctx context.Context, cid string) bool {
	if !IsCID(cid) {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.apiURL+"/pinning/unpin/"+cid, nil)
	if err != nil {
		return false
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("unpin failed", slog.String("cid", cid), slog.Any("error", err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("unpin rejected", slog.String("cid", cid), slog.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// FindByIdentity queries pins by metadata keyvalues, newest first.
func (s *PinataStore) FindByIdentity(ctx context.Context, identity, role string) (Object, bool, error) {
	filter := map[string]keyvalueFilter{KeyWalletAddress: {Value: identity, Op: "eq"}}
	if role != "" {
		filter[KeyRole] = keyvalueFilter{Value: role, Op: "eq"}
	}
	rawFilter, err := json.Marshal(filter)
	if err != nil {
		return Object{}, false, fmt.Errorf("%w: encode filter: %v", ErrFetch, err)
	}

	q := url.Values{}
	q.Set("status", "pinned")
	q.Set("pageLimit", "1")
	q.Set("metadata[keyvalues]", string(rawFilter))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"/data/pinList?"+q.Encode(), nil)
	if err != nil {
		return Object{}, false, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return Object{}, false, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Object{}, false, fmt.Errorf("%w: pin list status %d", ErrFetch, resp.StatusCode)
	}

	var list pinListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return Object{}, false, fmt.Errorf("%w: decode pin list: %v", ErrFetch, err)
	}
	if len(list.Rows) == 0 {
		return Object{}, false, nil
	}

	row := list.Rows[0]
	return Object{CID: row.IpfsPinHash, URL: s.gatewayURL(row.IpfsPinHash), Name: row.Metadata.Name}, true, nil
}

func (s *PinataStore) authorize(req *http.Request) {
	if s.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+s.jwt)
	}
}

func (s *PinataStore) gatewayURL(cid string) string {
	return s.gateway + "/ipfs/" + cid
}

func baseURL(raw, fallback string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return fallback
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return raw
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
