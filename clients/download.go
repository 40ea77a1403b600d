package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Download streams the body at url into w and returns the bytes written.
// limit caps the body size; 0 means unlimited.
func (h *HTTP) Download(ctx context.Context, url string, w io.Writer, limit int64) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := h.send(ctx, ServiceDownload, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError("download", resp)
	}
	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit+1)
	}
	n, err := io.Copy(w, r)
	if err != nil {
		return n, err
	}
	if limit > 0 && n > limit {
		return n, fmt.Errorf("download %s: body larger than %d bytes", url, limit)
	}
	return n, nil
}
