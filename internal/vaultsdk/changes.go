package vaultsdk

import (
	"context"
	"fmt"

	"github.com/imroc/req/v3"
)

const (
	v1Changes = "/api/v1/vault/changes"
)

// ChangesAPI delivers outbound change payloads.
type ChangesAPI struct {
	client *req.Client
}

func newChangesAPI(client *req.Client) *ChangesAPI {
	return &ChangesAPI{
		client: client,
	}
}

// Send delivers one payload as a single POST. The result is always non-nil:
// a transport failure or non-2xx response marks every change in the payload
// as errored instead of propagating an error. Retry is the caller's call.
func (c *ChangesAPI) Send(ctx context.Context, payload *ChangePayload) *DeliveryResult {
	res, err := c.client.R().
		SetContext(ctx).
		SetContentType("application/json").
		SetBody(payload).
		Post(v1Changes)

	if err != nil {
		return failAll(payload, err.Error())
	}

	if res.IsErrorState() {
		return failAll(payload, fmt.Sprintf("HTTP %d", res.StatusCode))
	}

	return &DeliveryResult{SuccessCount: len(payload.Changes)}
}

// failAll reports the whole payload as failed, one error string per change.
func failAll(payload *ChangePayload, reason string) *DeliveryResult {
	errs := make([]string, 0, len(payload.Changes))
	for _, change := range payload.Changes {
		errs = append(errs, fmt.Sprintf("%s: %s", change.FilePath, reason))
	}
	return &DeliveryResult{Errors: errs}
}
