package kratosprovider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	kratos "github.com/ory/kratos-client-go"
)

// Kratos UI message IDs, see https://www.ory.sh/docs/kratos/concepts/ui-user-interface#ui-message-codes
const (
	msgInvalidCredentials = 4000006
	msgDuplicateIdentity  = 4000007
	msgAddressUnverified  = 4000010
)

// flowError is the subset of a failed flow response the portal inspects.
type flowError struct {
	UI struct {
		Messages []uiText `json:"messages"`
		Nodes    []struct {
			Messages []uiText `json:"messages"`
		} `json:"nodes"`
	} `json:"ui"`
	Error struct {
		Code    int    `json:"code"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

type uiText struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

func (f flowError) messageIDs() []int64 {
	var ids []int64
	for _, m := range f.UI.Messages {
		ids = append(ids, m.ID)
	}
	for _, n := range f.UI.Nodes {
		for _, m := range n.Messages {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// classify converts a Kratos client failure into the portal's error taxonomy.
func classify(op string, err error, resp *http.Response) error {
	if resp == nil {
		// No response at all: connection refused, DNS, timeout.
		return apperrors.Transient("kratos "+op, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return apperrors.Transient("kratos "+op, fmt.Errorf("status %d: %w", resp.StatusCode, err))
	}

	var apiErr *kratos.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		var body flowError
		if jsonErr := json.Unmarshal(apiErr.Body(), &body); jsonErr == nil {
			for _, id := range body.messageIDs() {
				switch id {
				case msgInvalidCredentials:
					return apperrors.ErrInvalidCredentials
				case msgDuplicateIdentity:
					return apperrors.ErrDuplicateIdentity
				case msgAddressUnverified:
					return apperrors.ErrEmailUnconfirmed
				}
			}
		}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return apperrors.ErrSessionNotFound
	}
	return fmt.Errorf("kratos %s: status %d: %w", op, resp.StatusCode, err)
}

// classifySession is classify for calls made on behalf of a session, where 401 and 403 mean the session is gone.
func classifySession(op string, err error, resp *http.Response) error {
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return apperrors.ErrSessionNotFound
	}
	return classify(op, err, resp)
}

func isTransient(err error) bool {
	var transient *apperrors.TransientError
	return errors.As(err, &transient)
}
