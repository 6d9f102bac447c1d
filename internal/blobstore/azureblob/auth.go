package azureblob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/asad/azurefs/internal/azure"
	"github.com/asad/azurefs/internal/config"
	"github.com/asad/azurefs/internal/filesystem"
)

// ErrAnonymousSigning is returned when a disk without credentials is asked
// for a temporary URL.
var ErrAnonymousSigning = errors.New("azureblob: anonymous access cannot sign temporary URLs")

// ErrNoAccountKey is returned when a connection string without an account
// key is asked for a temporary URL.
var ErrNoAccountKey = errors.New("azureblob: connection string carries no account key to sign with")

// AuthProvider builds the SDK service client for one authentication method
// and signs blob URLs with the matching mechanism.
type AuthProvider interface {
	Method() config.AuthMethod
	ServiceClient(serviceURL string, opts *service.ClientOptions) (*service.Client, error)
	// SignBlob returns a SAS URL for b valid until expiry.
	SignBlob(ctx context.Context, svc *service.Client, b *blob.Client, perms azure.Permission, expiry time.Time, secure bool) (string, error)
}

// NewAuthProvider selects the provider named by the disk's authentication
// option. Credential construction errors are configuration errors.
func NewAuthProvider(disk config.DiskConfig) (AuthProvider, error) {
	method, err := disk.AuthMethod()
	if err != nil {
		return nil, err
	}

	switch method {
	case config.AuthSharedKey:
		return &sharedKeyAuth{account: disk.Account, key: disk.Key}, nil
	case config.AuthConnectionString:
		return &connectionStringAuth{connectionString: disk.ConnectionString}, nil
	case config.AuthAnonymous:
		return anonymousAuth{}, nil
	case config.AuthDefaultCredential:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, filesystem.InvalidConfiguration("failed to create default Azure credential", err)
		}
		return &tokenAuth{method: method, cred: cred}, nil
	default:
		cred, err := azidentity.NewClientSecretCredential(disk.Directory, disk.Application, disk.Secret, nil)
		if err != nil {
			return nil, filesystem.InvalidConfiguration("failed to create Microsoft Entra ID credential", err)
		}
		return &tokenAuth{method: config.AuthEntraID, cred: cred}, nil
	}
}

func sasPermissions(p azure.Permission) sas.BlobPermissions {
	return sas.BlobPermissions{
		Read:   p.Has(azure.PermissionRead),
		Create: p.Has(azure.PermissionCreate),
		Write:  p.Has(azure.PermissionWrite),
	}
}

func sasProtocol(secure bool) sas.Protocol {
	if secure {
		return sas.ProtocolHTTPS
	}
	return sas.ProtocolHTTPSandHTTP
}

// sharedKeyAuth signs requests and SAS tokens with the account key.
type sharedKeyAuth struct {
	account string
	key     string
}

func (a *sharedKeyAuth) Method() config.AuthMethod { return config.AuthSharedKey }

func (a *sharedKeyAuth) ServiceClient(serviceURL string, opts *service.ClientOptions) (*service.Client, error) {
	cred, err := service.NewSharedKeyCredential(a.account, a.key)
	if err != nil {
		return nil, filesystem.InvalidConfiguration("invalid shared key credential", err)
	}
	return service.NewClientWithSharedKeyCredential(serviceURL, cred, opts)
}

func (a *sharedKeyAuth) SignBlob(_ context.Context, _ *service.Client, b *blob.Client, perms azure.Permission, expiry time.Time, secure bool) (string, error) {
	return signWithAccountKey(b, a.account, a.key, perms, expiry, secure)
}

// signWithAccountKey builds a service SAS for b. blob.Client.GetSASURL
// cannot restrict the protocol, so the signature values are built here.
func signWithAccountKey(b *blob.Client, account, key string, perms azure.Permission, expiry time.Time, secure bool) (string, error) {
	cred, err := service.NewSharedKeyCredential(account, key)
	if err != nil {
		return "", filesystem.InvalidConfiguration("invalid shared key credential", err)
	}
	parts, err := blob.ParseURL(b.URL())
	if err != nil {
		return "", fmt.Errorf("failed to parse blob URL: %w", err)
	}
	p := sasPermissions(perms)
	values := sas.BlobSignatureValues{
		Protocol:      sasProtocol(secure),
		StartTime:     time.Now().UTC().Add(-5 * time.Minute),
		ExpiryTime:    expiry.UTC(),
		Permissions:   p.String(),
		ContainerName: parts.ContainerName,
		BlobName:      parts.BlobName,
	}
	query, err := values.SignWithSharedKey(cred)
	if err != nil {
		return "", fmt.Errorf("failed to sign blob URL: %w", err)
	}
	return b.URL() + "?" + query.Encode(), nil
}

// connectionStringAuth takes endpoint and credentials from a connection
// string. Signing only works when the string carries an account key.
type connectionStringAuth struct {
	connectionString string
}

func (a *connectionStringAuth) Method() config.AuthMethod { return config.AuthConnectionString }

func (a *connectionStringAuth) ServiceClient(_ string, opts *service.ClientOptions) (*service.Client, error) {
	return service.NewClientFromConnectionString(a.connectionString, opts)
}

func (a *connectionStringAuth) SignBlob(_ context.Context, _ *service.Client, b *blob.Client, perms azure.Permission, expiry time.Time, secure bool) (string, error) {
	account, key := accountKeyFrom(a.connectionString)
	if account == "" || key == "" {
		return "", ErrNoAccountKey
	}
	return signWithAccountKey(b, account, key, perms, expiry, secure)
}

// accountKeyFrom extracts AccountName and AccountKey from a connection
// string. Missing entries come back empty.
func accountKeyFrom(connectionString string) (account, key string) {
	for _, part := range strings.Split(connectionString, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToLower(name) {
		case "accountname":
			account = value
		case "accountkey":
			key = value
		}
	}
	return account, key
}

// tokenAuth authenticates with a Microsoft Entra ID token credential and
// signs with a user delegation key.
type tokenAuth struct {
	method config.AuthMethod
	cred   azcore.TokenCredential
}

func (a *tokenAuth) Method() config.AuthMethod { return a.method }

func (a *tokenAuth) ServiceClient(serviceURL string, opts *service.ClientOptions) (*service.Client, error) {
	return service.NewClient(serviceURL, a.cred, opts)
}

func (a *tokenAuth) SignBlob(ctx context.Context, svc *service.Client, b *blob.Client, perms azure.Permission, expiry time.Time, secure bool) (string, error) {
	start := time.Now().UTC().Add(-5 * time.Minute)
	info := service.KeyInfo{
		Start:  to.Ptr(start.Format(sas.TimeFormat)),
		Expiry: to.Ptr(expiry.UTC().Format(sas.TimeFormat)),
	}
	udc, err := svc.GetUserDelegationCredential(ctx, info, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get user delegation key: %w", err)
	}

	parts, err := blob.ParseURL(b.URL())
	if err != nil {
		return "", fmt.Errorf("failed to parse blob URL: %w", err)
	}
	p := sasPermissions(perms)
	values := sas.BlobSignatureValues{
		Protocol:      sasProtocol(secure),
		StartTime:     start,
		ExpiryTime:    expiry.UTC(),
		Permissions:   p.String(),
		ContainerName: parts.ContainerName,
		BlobName:      parts.BlobName,
	}
	query, err := values.SignWithUserDelegation(udc)
	if err != nil {
		return "", fmt.Errorf("failed to sign blob URL: %w", err)
	}
	return b.URL() + "?" + query.Encode(), nil
}

// anonymousAuth reaches public containers or emulators without credentials.
type anonymousAuth struct{}

func (anonymousAuth) Method() config.AuthMethod { return config.AuthAnonymous }

func (anonymousAuth) ServiceClient(serviceURL string, opts *service.ClientOptions) (*service.Client, error) {
	return service.NewClientWithNoCredential(serviceURL, opts)
}

func (anonymousAuth) SignBlob(context.Context, *service.Client, *blob.Client, azure.Permission, time.Time, bool) (string, error) {
	return "", ErrAnonymousSigning
}
