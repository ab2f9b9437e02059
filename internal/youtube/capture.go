package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

type recorderKey struct{}

// pageRecorder collects the response bodies of every successful request
// made with its context, in request order.
type pageRecorder struct {
	mu    sync.Mutex
	pages [][]byte
}

func recordPages(ctx context.Context) (context.Context, *pageRecorder) {
	rec := &pageRecorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

func (r *pageRecorder) add(body []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, body)
}

// payload merges the recorded pages into one snapshot: the first page's
// top-level fields with the items of every page, capped at limit when
// limit > 0. Items are kept byte for byte, so counters the API omitted
// stay omitted.
func (r *pageRecorder) payload(limit int) (map[string]json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := map[string]json.RawMessage{}
	items := []json.RawMessage{}
	for i, body := range r.pages {
		var page map[string]json.RawMessage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode response page %d: %w", i, err)
		}
		if i == 0 {
			for k, v := range page {
				out[k] = v
			}
		}
		if raw, ok := page["items"]; ok {
			var pageItems []json.RawMessage
			if err := json.Unmarshal(raw, &pageItems); err != nil {
				return nil, fmt.Errorf("decode items of page %d: %w", i, err)
			}
			items = append(items, pageItems...)
		}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	delete(out, "nextPageToken")
	delete(out, "prevPageToken")

	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	out["items"] = data
	return out, nil
}

// recordingTransport adds the API key to every request and hands successful
// response bodies to the request context's pageRecorder, if any.
type recordingTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.apiKey != "" {
		req = req.Clone(req.Context())
		q := req.URL.Query()
		q.Set("key", t.apiKey)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	rec, _ := req.Context().Value(recorderKey{}).(*pageRecorder)
	if rec == nil || resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	rec.add(body)
	return resp, nil
}
