package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureStore keeps objects as block blobs in one Azure Storage container.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore connects to the storage account described by connectionString.
// No request is made until the first operation.
func NewAzureStore(connectionString, container string) (*AzureStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}
	return &AzureStore{client: client, container: container}, nil
}

// EnsureContainer implements Store.EnsureContainer. An existing container is not an error.
func (s *AzureStore) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err == nil || bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil
	}
	return fmt.Errorf("creating container %q: %w", s.container, err)
}

// Put implements Store.Put. Block blob uploads replace existing blobs.
func (s *AzureStore) Put(ctx context.Context, name string, r io.Reader) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := s.client.UploadStream(ctx, s.container, name, r, nil); err != nil {
		return fmt.Errorf("uploading blob %q: %w", name, err)
	}
	return nil
}

// List implements Store.List, following the listing pager to the end.
func (s *AzureStore) List(ctx context.Context) ([]string, error) {
	var names []string
	pager := s.client.NewListBlobsFlatPager(s.container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing container %q: %w", s.container, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

// Get implements Store.Get.
func (s *AzureStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("blob %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("downloading blob %q: %w", name, err)
	}
	return resp.Body, nil
}
