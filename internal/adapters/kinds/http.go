package kinds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// HTTPBody sends one request per run and returns the response body.
type HTTPBody struct {
	domain.NopBody

	client       *resty.Client
	Method       string
	URL          string
	Headers      map[string]string
	Body         string
	ExpectStatus int // Zero accepts any 2xx status
}

func httpFactory(client *resty.Client) Factory {
	return func(d domain.Description) (domain.Body, error) {
		url, ok, err := attrString(d.Attributes, "url")
		if err != nil {
			return nil, err
		}
		if !ok || url == "" {
			return nil, errors.New("missing attribute \"url\"")
		}
		method, _, err := attrString(d.Attributes, "method")
		if err != nil {
			return nil, err
		}
		if method == "" {
			method = http.MethodGet
		}
		headers, err := attrStringMap(d.Attributes, "headers")
		if err != nil {
			return nil, err
		}
		payload, _, err := attrString(d.Attributes, "body")
		if err != nil {
			return nil, err
		}

		b := &HTTPBody{
			client:  client,
			Method:  strings.ToUpper(method),
			URL:     url,
			Headers: headers,
			Body:    payload,
		}
		if _, ok := d.Attributes["expect_status"]; ok {
			t := &domain.Task{Name: d.Name, Attributes: d.Attributes}
			status, err := t.Float("expect_status")
			if err != nil {
				return nil, err
			}
			b.ExpectStatus = int(status)
		}
		return b, nil
	}
}

func (h *HTTPBody) Run(ctx context.Context, _ *domain.Task) (any, error) {
	req := h.client.R().SetContext(ctx)
	if len(h.Headers) > 0 {
		req.SetHeaders(h.Headers)
	}
	if h.Body != "" {
		req.SetBody(h.Body)
	}

	resp, err := req.Execute(h.Method, h.URL)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", h.Method, h.URL, err)
	}
	if h.ExpectStatus != 0 && resp.StatusCode() != h.ExpectStatus {
		return nil, fmt.Errorf("%s %s: got status %d, want %d", h.Method, h.URL, resp.StatusCode(), h.ExpectStatus)
	}
	if h.ExpectStatus == 0 && !resp.IsSuccess() {
		return nil, fmt.Errorf("%s %s: %s", h.Method, h.URL, resp.Status())
	}
	return resp.String(), nil
}
