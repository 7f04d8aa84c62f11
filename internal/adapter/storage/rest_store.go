package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glossly/dealdesk/internal/core/domain"
	"github.com/glossly/dealdesk/internal/core/service"
)

// RESTStore is the dealer-side client of the order store API. It performs no
// retries; recoverable failures surface to the caller, and a 409/422 from
// the server becomes a *service.ServerRejectionError carrying the server's
// message verbatim.
type RESTStore struct {
	baseURL string
	client  *http.Client
}

func NewRESTStore(baseURL string, client *http.Client) *RESTStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RESTStore{baseURL: baseURL, client: client}
}

type patchOrderRequest struct {
	Status      *domain.Status   `json:"status,omitempty"`
	Actor       *domain.Actor    `json:"actor,omitempty"`
	AgreedPrice *decimal.Decimal `json:"agreedPrice,omitempty"`
	OpenedAt    *time.Time       `json:"openedAt,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (r *RESTStore) ListByDealer(ctx context.Context, dealerID string) ([]domain.Order, error) {
	endpoint := fmt.Sprintf("%s/orders?dealerId=%s", r.baseURL, url.QueryEscape(dealerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch orders: %s", readError(resp))
	}

	var orders []domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (r *RESTStore) Create(ctx context.Context, req domain.NewOrderRequest) (domain.Order, error) {
	resp, err := r.send(ctx, http.MethodPost, r.baseURL+"/orders", req)
	if err != nil {
		return domain.Order{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return domain.Order{}, fmt.Errorf("create order: %s", readError(resp))
	}
	return decodeOrder(resp.Body)
}

func (r *RESTStore) Transition(ctx context.Context, orderID string, actor domain.Actor, target domain.Status, agreedPrice *decimal.Decimal) (domain.Order, error) {
	body := patchOrderRequest{Status: &target, Actor: &actor, AgreedPrice: agreedPrice}
	resp, err := r.send(ctx, http.MethodPatch, r.baseURL+"/orders/"+url.PathEscape(orderID), body)
	if err != nil {
		return domain.Order{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return decodeOrder(resp.Body)
	case http.StatusNotFound:
		return domain.Order{}, service.ErrOrderNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// The server's refusal is authoritative; keep its message as is.
		return domain.Order{}, &service.ServerRejectionError{
			OrderID:    orderID,
			StatusCode: resp.StatusCode,
			Message:    readError(resp),
		}
	default:
		return domain.Order{}, fmt.Errorf("transition order %s: %s", orderID, readError(resp))
	}
}

func (r *RESTStore) MarkOpened(ctx context.Context, orderID string, at time.Time) error {
	body := patchOrderRequest{OpenedAt: &at}
	resp, err := r.send(ctx, http.MethodPatch, r.baseURL+"/orders/"+url.PathEscape(orderID), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("mark opened %s: %s", orderID, readError(resp))
	}
	return nil
}

func (r *RESTStore) send(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	return resp, nil
}

func decodeOrder(body io.Reader) (domain.Order, error) {
	var order domain.Order
	if err := json.NewDecoder(body).Decode(&order); err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", err)
	}
	return order, nil
}

// readError extracts the server's error message, falling back to the HTTP
// status line for non-JSON bodies.
func readError(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error != "" {
		return er.Error
	}
	return string(raw)
}
