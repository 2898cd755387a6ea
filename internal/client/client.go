// Package client is a small HTTP client for the pharmacy API used by posctl.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"pharmacy/internal/domain"
	"pharmacy/internal/receipt"
)

// APIError ответ сервера с кодом, отличным от ожидаемого
type APIError struct {
	Status  int
	Message string
	Stage   string
}

func (e *APIError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("api status %d (%s): %s", e.Status, e.Stage, e.Message)
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type Client struct {
	rc *resty.Client
}

func New(serverAddr string) *Client {
	rc := resty.New().
		SetBaseURL(serverAddr + "/api/v1").
		SetTimeout(10 * time.Second)
	return &Client{rc: rc}
}

func (c *Client) get(ctx context.Context, path string, query map[string]string) (*resty.Response, error) {
	req := c.rc.R().SetContext(ctx)
	req.Method = http.MethodGet
	req.URL = path
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return resp, nil
	default:
		return nil, decodeAPIError(resp)
	}
}

func decodeAPIError(resp *resty.Response) error {
	var body struct {
		Error string `json:"error"`
		Stage string `json:"stage"`
	}
	apiErr := &APIError{Status: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Message, apiErr.Stage = body.Error, body.Stage
	} else {
		apiErr.Message = resp.String()
	}
	return apiErr
}

func getJSON[T any](ctx context.Context, c *Client, path string, query map[string]string) (T, error) {
	var out T
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(resp.Body(), &out)
	return out, err
}

func (c *Client) Medicine(ctx context.Context, id int64) (domain.Medicine, error) {
	return getJSON[domain.Medicine](ctx, c, "/medicines/"+strconv.FormatInt(id, 10), nil)
}

// ExpiredMedicines; нулевой at означает текущую дату сервера
func (c *Client) ExpiredMedicines(ctx context.Context, at time.Time) ([]domain.Medicine, error) {
	var query map[string]string
	if !at.IsZero() {
		query = map[string]string{"at": at.Format("2006-01-02")}
	}
	return getJSON[[]domain.Medicine](ctx, c, "/inventory/expired", query)
}

func (c *Client) Receipt(ctx context.Context, orderID int64) (receipt.Receipt, error) {
	return getJSON[receipt.Receipt](ctx, c, "/orders/"+strconv.FormatInt(orderID, 10)+"/receipt", nil)
}

// ReceiptText печатная версия чека
func (c *Client) ReceiptText(ctx context.Context, orderID int64) (string, error) {
	resp, err := c.get(ctx, "/orders/"+strconv.FormatInt(orderID, 10)+"/receipt", map[string]string{"format": "text"})
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}
