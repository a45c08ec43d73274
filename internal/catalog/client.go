package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ProductCatalog/pkg/kit"
)

var (
	ErrUnauthorized = errors.New("catalog: unauthorized")
	ErrUnavailable  = errors.New("catalog unavailable")
	ErrBadStatus    = errors.New("catalog bad status")
)

// Client talks to a running catalog service and satisfies Store.
type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/readyz", nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status=%d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) List(ctx context.Context) ([]Product, error) {
	resp, err := c.do(ctx, http.MethodGet, "/products", nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		_, err := responseError(resp)
		return nil, err
	}
	var out []Product
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (Product, bool, error) {
	resp, err := c.do(ctx, http.MethodGet, productPath(id), nil)
	if err != nil {
		return Product{}, false, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Product{}, false, nil
	default:
		_, err := responseError(resp)
		return Product{}, false, err
	}

	var p Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

func (c *Client) Add(ctx context.Context, f Fields) (Product, error) {
	resp, err := c.do(ctx, http.MethodPost, "/products", f)
	if err != nil {
		return Product{}, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusCreated {
		id, err := responseError(resp)
		if errors.Is(err, ErrPersist) && id > 0 {
			// The server kept the product; rebuild what it stored.
			if p, perr := newProduct(id, f); perr == nil {
				return p, err
			}
		}
		return Product{}, err
	}
	var p Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *Client) Update(ctx context.Context, id int64, patch Fields) (Product, bool, error) {
	resp, err := c.do(ctx, http.MethodPatch, productPath(id), patch)
	if err != nil {
		return Product{}, false, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Product{}, false, nil
	default:
		_, err := responseError(resp)
		if errors.Is(err, ErrPersist) {
			// The patch was applied in memory; report the server's view of it.
			if p, ok, gerr := c.Get(ctx, id); gerr == nil && ok {
				return p, true, err
			}
			return Product{}, true, err
		}
		return Product{}, resp.StatusCode == http.StatusConflict, err
	}

	var p Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Product{}, true, err
	}
	return p, true, nil
}

func (c *Client) Delete(ctx context.Context, id int64) (bool, error) {
	resp, err := c.do(ctx, http.MethodDelete, productPath(id), nil)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		_, err := responseError(resp)
		return errors.Is(err, ErrPersist), err
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

var payloadErrors = []error{ErrCodeRequired, ErrInvalidCode, ErrIDImmutable}

// responseError maps an error response back onto the store's sentinels. id is
// the product id reported in the error details, or 0.
func responseError(resp *http.Response) (int64, error) {
	var er kit.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&er)

	switch resp.StatusCode {
	case http.StatusConflict:
		return 0, ErrDuplicateCode
	case http.StatusUnauthorized, http.StatusForbidden:
		return 0, fmt.Errorf("%w: %s", ErrUnauthorized, er.Error)
	case http.StatusBadRequest:
		for _, e := range payloadErrors {
			if er.Error == e.Error() {
				return 0, e
			}
		}
	case http.StatusInternalServerError:
		if er.Error == ErrPersist.Error() {
			return detailID(er.Details), ErrPersist
		}
	case http.StatusServiceUnavailable:
		return 0, ErrUnavailable
	}
	return 0, fmt.Errorf("%w: status=%d error=%q", ErrBadStatus, resp.StatusCode, er.Error)
}

func detailID(details any) int64 {
	m, ok := details.(map[string]any)
	if !ok {
		return 0
	}
	id, ok := m["id"].(float64)
	if !ok {
		return 0
	}
	return int64(id)
}
