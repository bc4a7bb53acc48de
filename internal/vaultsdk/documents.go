package vaultsdk

import (
	"context"

	"github.com/imroc/req/v3"
)

const (
	v1Documents = "/api/v1/vault/documents"
)

// DocumentsAPI fetches the remote document set for inbound sync.
type DocumentsAPI struct {
	client *req.Client
}

func newDocumentsAPI(client *req.Client) *DocumentsAPI {
	return &DocumentsAPI{
		client: client,
	}
}

func (d *DocumentsAPI) GetAll(ctx context.Context) (resp *DocumentsResponse, err error) {
	res, err := d.client.R().
		SetContext(ctx).
		SetSuccessResult(&resp).
		SetErrorResult(&APIError{}).
		Get(v1Documents)

	if err := handleAPIError(res, err, "vault documents"); err != nil {
		return nil, err
	}

	return resp, nil
}
