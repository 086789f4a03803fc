package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dispatchops/api/internal/dispatch"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidResponse = errors.New("invalid order feed response")
	ErrNoKnownColumns  = errors.New("no known order columns in header")
	ErrUnknownStatus   = errors.New("status has no remote equivalent")
)

const (
	feedPath   = "/v3/orders/public/get-24-hour-order"
	statusPath = "/v3/orders/multiple/status"
)

// remoteStatus is the delivery status vocabulary of the order API.
var remoteStatus = map[dispatch.Status]string{
	dispatch.StatusPending:   "PENDING",
	dispatch.StatusPickedUp:  "INPROGRESS",
	dispatch.StatusDelivered: "DELIVERED",
}

type APIConfig struct {
	BaseURL  string
	Key      string
	Timeout  time.Duration
	Attempts int
	Client   *http.Client
	Logger   logrus.FieldLogger
}

// API fetches the rolling 24-hour order list and posts batch status changes.
type API struct {
	base     string
	key      string
	timeout  time.Duration
	attempts int
	client   *http.Client
	log      logrus.FieldLogger
}

func NewAPI(cfg APIConfig) *API {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &API{
		base:     strings.TrimRight(cfg.BaseURL, "/"),
		key:      cfg.Key,
		timeout:  cfg.Timeout,
		attempts: cfg.Attempts,
		client:   cfg.Client,
		log:      cfg.Logger.WithField("module", "source.api"),
	}
}

type feedEnvelope struct {
	Status bool            `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (a *API) Fetch(ctx context.Context) ([]dispatch.Order, error) {
	var orders []dispatch.Order
	err := a.do(ctx, http.MethodGet, feedPath, nil, func(body io.Reader) error {
		var env feedEnvelope
		if err := json.NewDecoder(body).Decode(&env); err != nil {
			return errors.Wrap(ErrInvalidResponse, err.Error())
		}
		data := bytes.TrimSpace(env.Data)
		if !env.Status || len(data) == 0 || data[0] != '[' {
			return ErrInvalidResponse
		}
		var err error
		orders, err = DecodeOrders(bytes.NewReader(data))
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch order feed")
	}
	a.log.WithField("orders", len(orders)).Debug("order feed fetched")
	return orders, nil
}

func (a *API) UpdateStatus(ctx context.Context, ids []string, to dispatch.Status) error {
	remote, ok := remoteStatus[to]
	if !ok {
		return errors.Wrapf(ErrUnknownStatus, "%q", to)
	}
	payload, err := json.Marshal(map[string]any{
		"_id":            ids,
		"deliveryStatus": remote,
	})
	if err != nil {
		return errors.Wrap(err, "encode status update")
	}
	err = a.do(ctx, http.MethodPost, statusPath, payload, func(io.Reader) error { return nil })
	if err != nil {
		return errors.Wrapf(err, "post status %s", remote)
	}
	a.log.WithFields(logrus.Fields{"ids": len(ids), "status": remote}).Info("status update acknowledged")
	return nil
}

// do runs one request with retries. Transport errors and 5xx/429 responses
// are retried; other non-2xx responses fail immediately.
func (a *API) do(ctx context.Context, method, path string, payload []byte, handle func(io.Reader) error) error {
	u, err := url.Parse(a.base + path)
	if err != nil {
		return errors.Wrap(err, "build url")
	}
	q := u.Query()
	q.Set("key", a.key)
	u.RawQuery = q.Encode()

	backoff := retry.WithMaxRetries(uint64(a.attempts-1), retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(reqCtx, method, u.String(), body)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := a.client.Do(req)
		if err != nil {
			a.log.WithError(err).WithField("path", path).Warn("order api request failed")
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, resp.Body)
			return retry.RetryableError(fmt.Errorf("order api: http %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("order api: http %d", resp.StatusCode)
		}
		return handle(resp.Body)
	})
}
