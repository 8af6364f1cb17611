package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobDownloader is the subset of *azblob.Client used for rule tables.
type BlobDownloader interface {
	DownloadStream(ctx context.Context, containerName string, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

// AzureTableSource reads a rule table from Azure Blob Storage.
type AzureTableSource struct {
	client    BlobDownloader
	blobURL   string
	container string
	blob      string
}

// NewAzureTableSource authenticates with a shared key against the account's
// blob endpoint.
func NewAzureTableSource(accountName, accountKey, blobURL string) (*AzureTableSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return NewAzureTableSourceWithClient(client, blobURL)
}

func NewAzureTableSourceWithClient(client BlobDownloader, blobURL string) (*AzureTableSource, error) {
	container, blob, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}
	return &AzureTableSource{client: client, blobURL: blobURL, container: container, blob: blob}, nil
}

// ParseBlobURL splits a blob URL into container and blob name. Both
// https://acct.blob.core.windows.net/container/dir/table.yaml and the
// .../container?blob=dir/table.yaml form are accepted.
func ParseBlobURL(blobURL string) (string, string, error) {
	parsed, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}

	path := strings.TrimPrefix(parsed.Path, "/")
	container, blob, _ := strings.Cut(path, "/")
	if q := parsed.Query().Get("blob"); q != "" && blob == "" {
		blob = q
	}
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("invalid blob URL %q: container and blob name are required", blobURL)
	}
	return container, blob, nil
}

func (s *AzureTableSource) Describe() string {
	return "azure:" + s.blobURL
}

func (s *AzureTableSource) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.blob, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	body := resp.Body
	defer body.Close()
	return readTable(body)
}
