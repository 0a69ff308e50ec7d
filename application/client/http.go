package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/protocol/pkl"
)

// DefaultTimeout bounds every request when no http.Client is given.
const DefaultTimeout = 30 * time.Second

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// replyError turns an unexpected reply into an error. Login statuses
// become *pkl.Error; a redirect carries its location.
func replyError(res *http.Response) error {
	body, _ := application.ReadBody(res.Body)
	status := pkl.Status(res.StatusCode)
	switch status {
	case pkl.StatusRedirect:
		reply := new(pkl.RedirectReply)
		if err := json.Unmarshal(body, reply); err != nil || reply.Redirect == "" {
			return pkl.ErrMalformed
		}
		return pkl.Redirect(reply.Redirect)
	case pkl.StatusMalformed, pkl.StatusNoSession, pkl.StatusAuthFailed,
		pkl.StatusUnknownUser, pkl.StatusDuplicate:
		var reply struct {
			Error string `json:"error"`
		}
		json.Unmarshal(body, &reply)
		return &pkl.Error{Status: status, Msg: reply.Error}
	}
	return &application.StatusError{Status: res.StatusCode, Body: body}
}

func post(ctx context.Context, c *http.Client, u *url.URL, sessionID,
	contentType string, body []byte) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if sessionID != "" {
		req.Header.Set(pkl.SessionHeader, sessionID)
	}
	res, err := c.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, nil, replyError(res)
	}
	buf, err := application.ReadBody(res.Body)
	return buf, res.Header, err
}

// FetchServiceRoot gets a provider's service root: its current and
// previous root certificates and the provisioning location.
func FetchServiceRoot(ctx context.Context, c *http.Client, serviceURL string) (*protocol.ServiceRoot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := defaultHTTPClient(c).Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, replyError(res)
	}
	root := new(protocol.ServiceRoot)
	if err := application.UnmarshalBody(res.Body, root); err != nil {
		return nil, err
	}
	if root.CurrentCert == nil {
		return nil, protocol.ErrCertMalformed
	}
	return root, nil
}
