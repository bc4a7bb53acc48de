package vaultsdk

import (
	"fmt"
	"runtime"

	"github.com/denisbrodbeck/machineid"
	"github.com/imroc/req/v3"
	"github.com/openvault/vaultsync/internal/version"
)

const (
	HeaderVaultVersion  = "X-Vault-Version"
	HeaderVaultDeviceId = "X-Vault-Device-Id"
)

var userAgent = fmt.Sprintf("VaultSync/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// VaultSDK is the client for the vault sync server API.
type VaultSDK struct {
	client  *req.Client
	baseURL string

	Changes   *ChangesAPI
	Documents *DocumentsAPI
}

// New creates a new VaultSDK client for the given server URL.
// Delivery has no retry policy. A failed push is reported to the caller
// and dropped; pacing between batches is the caller's concern.
func New(baseURL string) (*VaultSDK, error) {
	if baseURL == "" {
		return nil, ErrNoServerURL
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetUserAgent(userAgent).
		SetCommonHeader(HeaderVaultVersion, version.Version).
		SetCommonHeader(HeaderVaultDeviceId, deviceID()).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &VaultSDK{
		client:    client,
		baseURL:   baseURL,
		Changes:   newChangesAPI(client),
		Documents: newDocumentsAPI(client),
	}, nil
}

func (s *VaultSDK) BaseURL() string {
	return s.baseURL
}

func (s *VaultSDK) Close() {
	s.client.GetClient().CloseIdleConnections()
}

func deviceID() string {
	id, err := machineid.ProtectedID(version.AppName)
	if err != nil {
		return "unknown"
	}
	return id
}
