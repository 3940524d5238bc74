package rtorder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
)

const gsPrefix = "gs://"

// IsGoogleStorage reports whether path addresses a Google Storage object.
func IsGoogleStorage(path string) bool {
	return strings.HasPrefix(path, gsPrefix)
}

// SplitGoogleStoragePath returns the bucket and object name of a gs:// path.
func SplitGoogleStoragePath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, gsPrefix), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// NewStorageClientIfNeeded only dials Google Storage when one of the paths
// points there. A nil client is returned otherwise.
func NewStorageClientIfNeeded(ctx context.Context, paths ...string) (*storage.Client, error) {
	for _, path := range paths {
		if IsGoogleStorage(path) {
			client, err := storage.NewClient(ctx)
			if err != nil {
				return nil, pfx.Err(err)
			}
			return client, nil
		}
	}

	return nil, nil
}

// ListGoogleStorage returns the gs:// paths of every object below the gs://
// prefix dir.
func ListGoogleStorage(ctx context.Context, dir string, client *storage.Client) ([]string, error) {
	if client == nil {
		return nil, fmt.Errorf("%s: a storage client is required for Google Storage paths", dir)
	}

	bucketName, objectPrefix, err := SplitGoogleStoragePath(dir)
	if err != nil {
		return nil, err
	}

	query := &storage.Query{Prefix: strings.TrimSuffix(objectPrefix, "/") + "/"}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, pfx.Err(err)
	}

	out := []string{}
	it := client.Bucket(bucketName).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", dir, err))
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		out = append(out, gsPrefix+bucketName+"/"+attrs.Name)
	}

	return out, nil
}

// OpenInput opens a local file or, when client is set, a gs:// object. The
// stream is transparently decompressed.
func OpenInput(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	var rc io.ReadCloser

	if IsGoogleStorage(path) {
		if client == nil {
			return nil, fmt.Errorf("%s: a storage client is required for Google Storage paths", path)
		}

		bucketName, objectName, err := SplitGoogleStoragePath(path)
		if err != nil {
			return nil, err
		}

		r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}
		rc = r
	} else {
		expanded, err := ExpandHome(path)
		if err != nil {
			return nil, err
		}

		f, err := os.Open(expanded)
		if err != nil {
			return nil, err
		}
		rc = f
	}

	out, _, err := MaybeDecompressReadCloser(rc)
	if err != nil {
		rc.Close()
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return out, nil
}

// CreateOutput creates (or truncates) a local file or a gs:// object. For
// Google Storage, the object only becomes visible once Close returns without
// error.
func CreateOutput(ctx context.Context, path string, client *storage.Client) (io.WriteCloser, error) {
	if IsGoogleStorage(path) {
		if client == nil {
			return nil, fmt.Errorf("%s: a storage client is required for Google Storage paths", path)
		}

		bucketName, objectName, err := SplitGoogleStoragePath(path)
		if err != nil {
			return nil, err
		}

		return client.Bucket(bucketName).Object(objectName).NewWriter(ctx), nil
	}

	expanded, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(expanded); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, pfx.Err(err)
		}
	}

	return os.Create(expanded)
}

// WriteOutput creates path, hands it to write and closes it. A failed write
// is reported with the path.
func WriteOutput(ctx context.Context, path string, client *storage.Client, write func(io.Writer) error) error {
	wc, err := CreateOutput(ctx, path, client)
	if err != nil {
		return err
	}

	if err := write(wc); err != nil {
		wc.Close()
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	if err := wc.Close(); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return nil
}
