package arkham

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"arkx/internal/infrastructure/svc"
)

// get 发送带 referer 的 GET 请求（依赖会话 cookie 鉴权）
func (c *APIClient) get(ctx context.Context, path, referer string, params map[string]string) (*resty.Response, error) {
	req := c.sess.R().
		SetContext(ctx).
		SetHeader("accept", "application/json")
	if referer != "" {
		req.SetHeader("referer", referer)
	}
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	resp, err := req.Get(c.baseURL + path)
	if err != nil {
		return nil, &svc.TransportError{Op: "GET " + path, Err: err}
	}
	return resp, nil
}

// postJSON 发送 JSON POST，携带 origin 与 referer 头
func (c *APIClient) postJSON(ctx context.Context, path, referer string, body any) (*resty.Response, error) {
	req := c.sess.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetHeader("accept", "application/json").
		SetHeader("origin", c.baseURL)
	if referer != "" {
		req.SetHeader("referer", referer)
	}
	resp, err := req.SetBody(body).Post(c.baseURL + path)
	if err != nil {
		return nil, &svc.TransportError{Op: "POST " + path, Err: err}
	}
	return resp, nil
}

// signedGet 发送 API key 签名的 GET 请求。签名串为
// timestamp + method + path + "?" + query，毫秒时间戳。
func (c *APIClient) signedGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.credentials == nil {
		return nil, errors.New("arkham: api credentials not configured")
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	qs := query.Encode()
	payload := ts + http.MethodGet + path
	endpoint := c.baseURL + path
	if qs != "" {
		payload += "?" + qs
		endpoint += "?" + qs
	}

	resp, err := c.sess.R().
		SetContext(ctx).
		SetHeader("ARK-API-KEY", c.credentials.APIKey()).
		SetHeader("ARK-API-SIGNATURE", c.credentials.Sign(payload)).
		SetHeader("ARK-API-TIMESTAMP", ts).
		SetHeader("content-type", "application/json").
		Get(endpoint)
	if err != nil {
		return nil, &svc.TransportError{Op: "GET " + path, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &svc.TransportError{Op: "GET " + path, Status: resp.StatusCode(), Err: errors.New(strings.TrimSpace(resp.String()))}
	}
	return resp.Body(), nil
}

// apiFloat tolerates numbers the API returns either quoted or bare.
type apiFloat float64

func (f *apiFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Wrapf(err, "parse api number %q", s)
	}
	*f = apiFloat(v)
	return nil
}

// unmarshalFirst decodes either a single object or the first element of an
// array response into out. An empty array maps to svc.ErrNotFound.
func unmarshalFirst(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return svc.ErrNotFound
	}
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return errors.Wrap(err, "decode array response")
		}
		if len(items) == 0 {
			return svc.ErrNotFound
		}
		trimmed = items[0]
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// unmarshalList decodes an array response, tolerating a single bare object.
func unmarshalList[T any](data []byte, out *[]T) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*out = nil
		return nil
	}
	if trimmed[0] != '[' {
		var one T
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return errors.Wrap(err, "decode response")
		}
		*out = []T{one}
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return errors.Wrap(err, "decode array response")
	}
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
