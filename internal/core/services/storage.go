// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the business logic for interacting with data
// sources. This file defines the ObjectStore abstraction the pipeline uses
// for durable media: fetching source videos into local scratch space and
// publishing produced clips, thumbnails, and renders. Two implementations
// are provided, one backed by Google Cloud Storage with signed download
// URLs and one backed by the local filesystem for development and tests.
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"
)

// ObjectStore abstracts where produced media lives.
type ObjectStore interface {
	// Fetch materializes the referenced object as a local file and returns
	// its path. Supported references depend on the implementation; http(s)
	// sources are handled by every implementation.
	Fetch(ctx context.Context, ref string, destDir string) (string, error)
	// Put publishes a local file under the given object name and returns a
	// URL a client can retrieve it from.
	Put(ctx context.Context, localPath string, objectName string) (string, error)
}

// GCSStore stores produced media in a Cloud Storage bucket and hands out
// V4 signed URLs for retrieval.
type GCSStore struct {
	StorageClient *storage.Client                   // Client for interacting with Google Cloud Storage.
	IAMClient     *credentials.IamCredentialsClient // Client for IAM, used when signing runs through a service account.
	SignerEmail   string                            // The service account email used to sign URLs.
	Bucket        string                            // The output bucket for produced media.
	URLExpiry     time.Duration                     // Lifetime of generated signed URLs.
}

// NewGCSStore is the constructor for the Cloud Storage backed store.
func NewGCSStore(storageClient *storage.Client, iamClient *credentials.IamCredentialsClient, signerEmail string, bucket string) *GCSStore {
	return &GCSStore{
		StorageClient: storageClient,
		IAMClient:     iamClient,
		SignerEmail:   signerEmail,
		Bucket:        bucket,
		URLExpiry:     4 * time.Hour,
	}
}

// Fetch downloads a gs:// or http(s) reference into destDir.
func (s *GCSStore) Fetch(ctx context.Context, ref string, destDir string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return fetchHTTP(ctx, ref, destDir)
	}
	bucket, object, err := splitGCSRef(ref)
	if err != nil {
		return "", err
	}

	reader, err := s.StorageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to open gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	dest := filepath.Join(destDir, path.Base(object))
	if err := writeLocal(dest, reader); err != nil {
		return "", err
	}
	return dest, nil
}

// Put uploads the local file and returns a signed URL for it.
func (s *GCSStore) Put(ctx context.Context, localPath string, objectName string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("could not open source file: %w", err)
	}
	defer src.Close()

	writer := s.StorageClient.Bucket(s.Bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(writer, src); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to upload %s to gs://%s/%s: %w", localPath, s.Bucket, objectName, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize gs://%s/%s: %w", s.Bucket, objectName, err)
	}
	return s.GenerateSignedURL(ctx, objectName, s.URLExpiry)
}

// GenerateSignedURL creates a time-limited, secure URL to access a private
// GCS object, so clients can stream produced media directly from GCS
// without needing their own credentials. The URL is signed with the
// credentials of the service account in SignerEmail.
func (s *GCSStore) GenerateSignedURL(_ context.Context, objectName string, expires time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
	}
	u, err := s.StorageClient.Bucket(s.Bucket).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", s.Bucket, objectName, err)
	}
	return u, nil
}

// splitGCSRef parses "gs://bucket/path/to/object".
func splitGCSRef(ref string) (bucket string, object string, err error) {
	const prefix = "gs://"
	if !strings.HasPrefix(ref, prefix) {
		return "", "", fmt.Errorf("unsupported object reference: %s", ref)
	}
	parts := strings.SplitN(strings.TrimPrefix(ref, prefix), "/", 2)
	if len(parts) < 2 || len(parts[0]) == 0 || len(parts[1]) == 0 {
		return "", "", fmt.Errorf("invalid GCS reference: unable to determine bucket and object from %s", ref)
	}
	return parts[0], parts[1], nil
}

// LocalStore keeps produced media on the local filesystem. It exists for
// development machines and the test suite, where round-tripping through a
// bucket would add nothing.
type LocalStore struct {
	BaseDir string // Directory produced media is published into.
	BaseURL string // URL prefix returned for published objects.
}

// NewLocalStore is the constructor for the filesystem backed store.
func NewLocalStore(baseDir string, baseURL string) *LocalStore {
	return &LocalStore{BaseDir: baseDir, BaseURL: strings.TrimSuffix(baseURL, "/")}
}

// Fetch resolves http(s) references by download and anything else as a
// local filesystem path.
func (s *LocalStore) Fetch(ctx context.Context, ref string, destDir string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return fetchHTTP(ctx, ref, destDir)
	}
	if _, err := os.Stat(ref); err != nil {
		return "", fmt.Errorf("source file not found: %s: %w", ref, err)
	}
	return ref, nil
}

// Put copies the local file into the store's base directory.
func (s *LocalStore) Put(_ context.Context, localPath string, objectName string) (string, error) {
	dest := filepath.Join(s.BaseDir, objectName)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("could not create output directory: %w", err)
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("could not open source file: %w", err)
	}
	defer src.Close()
	if err := writeLocal(dest, src); err != nil {
		return "", err
	}
	if len(s.BaseURL) == 0 {
		return dest, nil
	}
	return s.BaseURL + "/" + objectName, nil
}

// fetchHTTP downloads an http(s) source into destDir.
func fetchHTTP(ctx context.Context, url string, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid source url %s: %w", url, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: status %s", url, resp.Status)
	}

	name := path.Base(req.URL.Path)
	if len(name) == 0 || name == "/" || name == "." {
		name = "source-media"
	}
	dest := filepath.Join(destDir, name)
	if err := writeLocal(dest, resp.Body); err != nil {
		return "", err
	}
	return dest, nil
}

// writeLocal streams a reader into a freshly created local file.
func writeLocal(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("could not create dest file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("could not copy to dest from source: %w", err)
	}
	return nil
}
